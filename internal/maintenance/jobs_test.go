package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubMenu struct {
	resp *storeapi.Response
	err  error
}

func (s stubMenu) FetchMenu(context.Context) (*storeapi.Response, error) { return s.resp, s.err }

func TestStoragePurgeJob(t *testing.T) {
	purger := &stubPurger{removed: 4}
	job, err := NewStoragePurgeJob(purger, logger.Nop())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if purger.calls != 1 {
		t.Fatalf("expected one purge, got %d", purger.calls)
	}

	purger.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected purge errors to surface")
	}
}

func TestMenuProbeJob(t *testing.T) {
	cases := []struct {
		name    string
		menu    stubMenu
		wantErr bool
	}{
		{
			name: "healthy menu",
			menu: stubMenu{resp: &storeapi.Response{OK: true, Status: 200, Data: []byte(`[{"id":"calabresa","nome":"Calabresa","preco":50}]`)}},
		},
		{
			name:    "empty menu",
			menu:    stubMenu{resp: &storeapi.Response{OK: true, Status: 200, Data: []byte(`{"pizzas":[]}`)}},
			wantErr: true,
		},
		{
			name:    "backend error status",
			menu:    stubMenu{resp: &storeapi.Response{OK: false, Status: 502, Data: []byte(`{"message":"down"}`)}},
			wantErr: true,
		},
		{
			name:    "transport failure",
			menu:    stubMenu{err: errors.New("dial tcp")},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := NewMenuProbeJob(tc.menu, logger.Nop())
			if err != nil {
				t.Fatalf("new job: %v", err)
			}
			err = job.Run(context.Background())
			if tc.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
