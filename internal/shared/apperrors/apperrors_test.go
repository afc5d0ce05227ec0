package apperrors

import (
	"testing"

	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliverykit/calsync/internal/shared/config"
)

func TestTrackedLogReportsErrorsAndWarnings(t *testing.T) {
	mt := NewMemoryTracker()
	log := WrapLogWithTracker(logutil.NewStderrLog("test"), logutil.Context{"component": "reconcile"}, mt)

	log.Infof("not tracked")
	log.Warnf("calendar for subscription %s not found", "seal_1")
	log.Child("push").Errorf("provider failed: %s", "boom")

	tracked := mt.Tracked()
	require.Len(t, tracked, 2)
	assert.Equal(t, LevelWarn, tracked[0].Level)
	assert.Equal(t, "calendar for subscription seal_1 not found", tracked[0].Text)
	assert.Equal(t, "reconcile", tracked[0].Ctx["component"])
	assert.Equal(t, LevelError, tracked[1].Level)
	assert.Equal(t, "provider failed: boom", tracked[1].Text)
}

func TestTeeTracker(t *testing.T) {
	a, b := NewMemoryTracker(), NewMemoryTracker()
	Tee(a, b, NewNopTracker()).Track(LevelError, "x", nil)

	assert.Len(t, a.Tracked(), 1)
	assert.Len(t, b.Tracked(), 1)
}

func TestGetTrackerDefaultsToNop(t *testing.T) {
	log := logutil.NewStderrLog("test")
	cfg := config.NewViperConfig(log, viper.New())

	_, ok := GetTracker(cfg, log, "calsync").(*NopTracker)
	assert.True(t, ok)
}

func TestSplitErrorText(t *testing.T) {
	class, detail := splitErrorText("migration create failed: seal: 422")
	assert.Equal(t, "migration create failed", class)
	assert.Equal(t, "seal: 422", detail)

	class, detail = splitErrorText("calendar not found")
	assert.Equal(t, "calendar not found", class)
	assert.Empty(t, detail)
}

func TestTrackedLogChildAddsComponent(t *testing.T) {
	mt := NewMemoryTracker()
	log := WrapLogWithTracker(logutil.NewStderrLog("test"), nil, mt)

	log.Child("migration").Child("seal").Warnf("retrying")

	tracked := mt.Tracked()
	require.Len(t, tracked, 1)
	assert.Equal(t, "migration", tracked[0].Ctx["component"])
}
