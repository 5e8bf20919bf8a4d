package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/mail/mock"
	"github.com/aussiebroadwan/congregation/internal/auth/metrics"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const strongPassword = "Aa1!aaaa"

var testSecret = []byte("service-test-secret-0123456789abcdef")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	store    *sqlite.Store
	accounts *service.AccountService
	tokens   *service.TokenService
	mailer   *mock.MockMailer
	metrics  *metrics.Metrics
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewHS256Signer(testSecret, "congregation-test")
	require.NoError(t, err)
	verifier := jwtx.NewHS256Verifier(testSecret, "congregation-test")

	clk := newClock()
	verifier.Now = clk.Now

	tokens := &service.TokenService{
		Store:    st,
		Signer:   signer,
		Verifier: verifier,
		Now:      clk.Now,
	}

	m := metrics.New()
	mailer := mock.NewMockMailer(gomock.NewController(t))

	return &harness{
		store: st,
		accounts: &service.AccountService{
			Store:   st,
			Tokens:  tokens,
			Mailer:  mailer,
			Metrics: m,
			Now:     clk.Now,
		},
		tokens:  tokens,
		mailer:  mailer,
		metrics: m,
		clock:   clk,
	}
}

// quiet accepts any mail.
func (h *harness) quiet() *harness {
	h.mailer.EXPECT().SendWelcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.mailer.EXPECT().SendSecurityAlert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return h
}

// counter reads one labelled counter from the harness registry. Labels are
// given as name, value pairs.
func (h *harness) counter(t *testing.T, name string, labels ...string) float64 {
	t.Helper()
	families, err := h.metrics.Registry().Gather()
	require.NoError(t, err)

	want := map[string]string{}
	for i := 0; i+1 < len(labels); i += 2 {
		want[labels[i]] = labels[i+1]
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
