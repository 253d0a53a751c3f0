package service

import (
	"context"
	"testing"
	"time"

	"depot/pkg/config"
	"depot/pkg/logger"
	"depot/pkg/model"
)

func newTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	return &config.Config{
		Log:                   log,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
		AssetCodePadding:      4,
		DefaultCategoryPrefix: "GEN",
	}
}

type mockAssetLister struct {
	listAllFunc      func(ctx context.Context) ([]*model.Asset, error)
	updateStatusFunc func(ctx context.Context, id string, status string) error
}

func (m *mockAssetLister) ListAll(ctx context.Context) ([]*model.Asset, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return []*model.Asset{}, nil
}

func (m *mockAssetLister) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

type mockClaims struct {
	ids map[string]struct{}
	err error
}

func (m *mockClaims) OpenTaskAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	return m.ids, m.err
}

func (m *mockClaims) ActiveLoanAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	return m.ids, m.err
}

type recordingResyncNotifier struct {
	scanned   int
	corrected int
	calls     int
}

func (n *recordingResyncNotifier) ResyncCompleted(ctx context.Context, scanned, corrected int) error {
	n.scanned = scanned
	n.corrected = corrected
	n.calls++
	return nil
}

func TestDesiredStatus_Precedence(t *testing.T) {
	cases := []struct {
		name            string
		openMaintenance bool
		activeLoan      bool
		want            string
	}{
		{"no claims", false, false, model.AssetAvailable},
		{"loan only", false, true, model.AssetInUse},
		{"maintenance only", true, false, model.AssetMaintenance},
		{"maintenance outranks loan", true, true, model.AssetMaintenance},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DesiredStatus(tc.openMaintenance, tc.activeLoan); got != tc.want {
				t.Errorf("DesiredStatus(%v, %v) = %q, want %q", tc.openMaintenance, tc.activeLoan, got, tc.want)
			}
		})
	}
}

func TestResync_CorrectsDrift(t *testing.T) {
	cfg := newTestConfig()

	// a: under maintenance but marked available
	// b: on loan but marked maintenance
	// c: no claims but marked in_use
	// d: already correct
	inventory := map[string]*model.Asset{
		"a": {ID: "a", Status: model.AssetAvailable},
		"b": {ID: "b", Status: model.AssetMaintenance},
		"c": {ID: "c", Status: model.AssetInUse},
		"d": {ID: "d", Status: model.AssetAvailable},
	}

	corrections := map[string]string{}
	lister := &mockAssetLister{
		listAllFunc: func(ctx context.Context) ([]*model.Asset, error) {
			return []*model.Asset{inventory["a"], inventory["b"], inventory["c"], inventory["d"]}, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			corrections[id] = status
			return nil
		},
	}

	notifier := &recordingResyncNotifier{}
	engine := NewResyncService(
		lister,
		&mockClaims{ids: map[string]struct{}{"a": {}}},
		&mockClaims{ids: map[string]struct{}{"b": {}}},
		notifier,
		cfg,
	)

	report, err := engine.Resync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Scanned != 4 {
		t.Errorf("expected 4 scanned, got %d", report.Scanned)
	}
	if report.Corrected != 3 {
		t.Errorf("expected 3 corrected, got %d", report.Corrected)
	}

	expected := map[string]string{
		"a": model.AssetMaintenance,
		"b": model.AssetInUse,
		"c": model.AssetAvailable,
	}
	for id, want := range expected {
		if got := corrections[id]; got != want {
			t.Errorf("asset %s corrected to %q, want %q", id, got, want)
		}
	}
	if _, touched := corrections["d"]; touched {
		t.Error("asset d was already correct and should not be written")
	}

	if notifier.calls != 1 || notifier.scanned != 4 || notifier.corrected != 3 {
		t.Errorf("notifier got calls=%d scanned=%d corrected=%d", notifier.calls, notifier.scanned, notifier.corrected)
	}
}

func TestResync_SecondPassCorrectsNothing(t *testing.T) {
	cfg := newTestConfig()

	inventory := map[string]*model.Asset{
		"a": {ID: "a", Status: model.AssetAvailable},
		"b": {ID: "b", Status: model.AssetAvailable},
	}

	lister := &mockAssetLister{
		listAllFunc: func(ctx context.Context) ([]*model.Asset, error) {
			return []*model.Asset{inventory["a"], inventory["b"]}, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			inventory[id].Status = status
			return nil
		},
	}

	engine := NewResyncService(
		lister,
		&mockClaims{ids: map[string]struct{}{"a": {}}},
		&mockClaims{ids: map[string]struct{}{}},
		&recordingResyncNotifier{},
		cfg,
	)

	first, err := engine.Resync(context.Background())
	if err != nil {
		t.Fatalf("first pass: unexpected error: %v", err)
	}
	if first.Corrected != 1 {
		t.Fatalf("first pass: expected 1 correction, got %d", first.Corrected)
	}

	second, err := engine.Resync(context.Background())
	if err != nil {
		t.Fatalf("second pass: unexpected error: %v", err)
	}
	if second.Corrected != 0 {
		t.Errorf("second pass: expected 0 corrections, got %d", second.Corrected)
	}
}

func TestResync_NotifierFailureDoesNotFailPass(t *testing.T) {
	cfg := newTestConfig()

	lister := &mockAssetLister{
		listAllFunc: func(ctx context.Context) ([]*model.Asset, error) {
			return []*model.Asset{{ID: "a", Status: model.AssetAvailable}}, nil
		},
	}

	engine := NewResyncService(
		lister,
		&mockClaims{ids: map[string]struct{}{}},
		&mockClaims{ids: map[string]struct{}{}},
		failingResyncNotifier{},
		cfg,
	)

	report, err := engine.Resync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Scanned != 1 {
		t.Errorf("expected 1 scanned, got %d", report.Scanned)
	}
}

type failingResyncNotifier struct{}

func (failingResyncNotifier) ResyncCompleted(ctx context.Context, scanned, corrected int) error {
	return context.DeadlineExceeded
}
