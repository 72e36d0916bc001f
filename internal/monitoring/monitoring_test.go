package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
	"github.com/Godfather59/score-app/internal/storage"
	"github.com/Godfather59/score-app/internal/testutil"
)

type recordedEvent struct {
	Type, Level string
}

type fakeEvents struct {
	mu       sync.Mutex
	events   []recordedEvent
	pruned   time.Time
	pruneErr error
}

func (f *fakeEvents) CreateEvent(_ context.Context, eventType, level, _ string, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType, level})
	return nil
}

func (f *fakeEvents) GetRecentEvents(context.Context, int) ([]models.Event, error) { return nil, nil }

func (f *fakeEvents) PruneEvents(_ context.Context, olderThan time.Time) (int64, error) {
	f.pruned = olderThan
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	return 3, nil
}

func TestStatSampler_StoresLatestAndAlertsOnce(t *testing.T) {
	events := &fakeEvents{}
	ss := NewStatSampler(events, time.Second, 80)
	ss.sample = func(context.Context) (models.HostStats, error) {
		return models.HostStats{CPUPercent: 95, MemoryPercent: 40, SampledAt: time.Now()}, nil
	}

	_, ok := ss.Latest()
	assert.False(t, ok)

	ss.update()
	ss.update()

	stats, ok := ss.Latest()
	require.True(t, ok)
	assert.Equal(t, 95.0, stats.CPUPercent)
	// The second sample falls inside the cooldown.
	assert.Equal(t, []recordedEvent{{"system.alert.cpu", services.LevelWarn}}, events.events)
}

func TestStatSampler_KeepsPreviousSampleOnError(t *testing.T) {
	ss := NewStatSampler(nil, time.Second, 0)
	ss.sample = func(context.Context) (models.HostStats, error) {
		return models.HostStats{CPUPercent: 10}, nil
	}
	ss.update()

	ss.sample = func(context.Context) (models.HostStats, error) {
		return models.HostStats{}, errors.New("boom")
	}
	ss.update()

	stats, ok := ss.Latest()
	require.True(t, ok)
	assert.Equal(t, 10.0, stats.CPUPercent)
}

func TestStatSampler_RunAndStop(t *testing.T) {
	ss := NewStatSampler(nil, 10*time.Millisecond, 0)
	ss.sample = func(context.Context) (models.HostStats, error) {
		return models.HostStats{CPUPercent: 1}, nil
	}

	done := make(chan struct{})
	go func() {
		ss.Run()
		close(done)
	}()
	assert.Eventually(t, func() bool { _, ok := ss.Latest(); return ok }, time.Second, 5*time.Millisecond)

	ss.Stop()
	ss.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
}

func TestScheduler_AdvanceMatches(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	store, err := storage.NewLocalService(t.TempDir(), "/uploads")
	require.NoError(t, err)

	teams := services.NewTeamService(db, store, nil)
	home, err := teams.CreateTeam(ctx, services.TeamInput{Name: "Arsenal"}, nil)
	require.NoError(t, err)
	away, err := teams.CreateTeam(ctx, services.TeamInput{Name: "Chelsea"}, nil)
	require.NoError(t, err)

	matches := services.NewMatchService(db, store, nil, nil, time.UTC)
	kickedOff, err := matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: home.ID, AwayTeamID: away.ID, Date: "2026-05-01", Time: "15:00"})
	require.NoError(t, err)
	finished, err := matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: away.ID, AwayTeamID: home.ID, Date: "2026-04-30", Time: "15:00", Status: "live"})
	require.NoError(t, err)
	future, err := matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: home.ID, AwayTeamID: away.ID, Date: "2026-06-01", Time: "15:00"})
	require.NoError(t, err)

	s := NewScheduler(matches, &fakeEvents{}, SchedulerConfig{MatchDuration: 2 * time.Hour})
	s.now = func() time.Time { return time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC) }
	s.advanceMatches()

	for id, want := range map[string]models.MatchStatus{
		kickedOff.ID: models.MatchLive,
		finished.ID:  models.MatchCompleted,
		future.ID:    models.MatchUpcoming,
	} {
		m, err := matches.GetMatchByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, m.Status, "match %s", id)
	}
}

func TestScheduler_PruneEvents(t *testing.T) {
	events := &fakeEvents{}
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := NewScheduler(nil, events, SchedulerConfig{EventRetention: 48 * time.Hour})
	s.now = func() time.Time { return now }

	s.pruneEvents()
	assert.Equal(t, now.Add(-48*time.Hour), events.pruned)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil, nil, SchedulerConfig{MatchStatusSpec: "not a cron spec"})
	assert.Error(t, s.Start())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil, &fakeEvents{}, SchedulerConfig{
		MatchStatusSpec:  "@every 1h",
		EventPruningSpec: "@daily",
		EventRetention:   time.Hour,
	})
	require.NoError(t, s.Start())
	s.Stop()
}

type failingMatches struct {
	services.MatchServiceProvider
}

func (failingMatches) AdvanceStatuses(context.Context, time.Time, time.Duration) (int, error) {
	return 0, errors.New("database is locked")
}

func TestScheduler_RecordsFailedJobs(t *testing.T) {
	events := &fakeEvents{pruneErr: errors.New("disk I/O error")}
	s := NewScheduler(failingMatches{}, events, SchedulerConfig{MatchDuration: time.Hour, EventRetention: time.Hour})

	s.advanceMatches()
	s.pruneEvents()

	assert.Equal(t, []recordedEvent{
		{"system.job.failed", services.LevelError},
		{"system.job.failed", services.LevelError},
	}, events.events)
}
