package transportutil

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

const maxBodySize = 1 << 20

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.Wrap(apierrors.ErrBadRequest, "no request body")
	}
	defer r.Body.Close()

	body, err := ioutil.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrapf(apierrors.ErrBadRequest, "failed to read request body: %s", err)
	}

	return body, nil
}

func DecodeJSONBody(r *http.Request, dst interface{}) error {
	body, err := ReadBody(r)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(body, dst); err != nil {
		return errors.Wrapf(apierrors.ErrBadRequest, "invalid json: %s", err)
	}

	return nil
}

// DecodeQuery fills dst from url params using `schema` struct tags.
func DecodeQuery(r *http.Request, dst interface{}) error {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return errors.Wrapf(apierrors.ErrBadRequest, "invalid query: %s", err)
	}

	return nil
}

func URLPartUint(r *http.Request, key string) (uint, error) {
	v := mux.Vars(r)[key]
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.Wrapf(apierrors.ErrBadRequest, "invalid %s %q", key, v)
	}

	return uint(n), nil
}

func URLPart(r *http.Request, key string) (string, error) {
	v := mux.Vars(r)[key]
	if v == "" {
		return "", errors.Wrapf(apierrors.ErrBadRequest, "no %s", key)
	}

	return v, nil
}
