package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) PruneOpen(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return 1, p.err
}

func TestMaintenance_RunsPruneJob(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, tc := range []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure keeps running", errors.New("redis down")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &countingPruner{err: tc.err}
			m, err := NewMaintenance(context.Background(), p, 20*time.Millisecond, log)
			require.NoError(t, err)
			m.Start()
			defer func() { require.NoError(t, m.Stop()) }()

			require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
		})
	}
}
