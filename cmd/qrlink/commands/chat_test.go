package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/app"
	"qrlink/internal/crypto"
	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
	"qrlink/internal/rtc/rtctest"
	"qrlink/internal/store"
	"qrlink/internal/worker"
)

func newTestApp(t *testing.T, net *rtctest.Network) *app.App {
	t.Helper()
	cfg := app.Config{
		Home:   t.TempDir(),
		Store:  app.StoreConfig{Backend: store.BackendFile},
		Crypto: app.CryptoConfig{Scheme: crypto.SchemeAge},
		Worker: app.WorkerConfig{Mode: worker.ModeInProcess, Concurrency: 2},
		RTC:    app.RTCConfig{ChannelLabel: rtc.DefaultChannelLabel},
	}
	a, err := app.New(context.Background(), cfg, app.WithLinkFactory(net))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func localDescriptor(t *testing.T, c *app.Chat) string {
	t.Helper()
	select {
	case d := <-c.Local():
		s, err := d.Encode()
		require.NoError(t, err)
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for local descriptor")
	}
	return ""
}

func TestRepeatedAnswerIsIgnored(t *testing.T) {
	ctx := context.Background()
	net := rtctest.NewNetwork()
	appCtx = newTestApp(t, net)
	t.Cleanup(func() { appCtx = nil })
	peer := newTestApp(t, net)

	offerer, err := appCtx.Offer(ctx)
	require.NoError(t, err)
	offer, err := signal.ParseDescriptor(localDescriptor(t, offerer))
	require.NoError(t, err)
	answerer, err := peer.Answer(ctx, offer)
	require.NoError(t, err)
	answer := localDescriptor(t, answerer)

	var out bytes.Buffer
	scanPending(ctx, &out, offerer, answer)
	assert.Empty(t, out.String())
	assert.False(t, offerer.AwaitingAnswer())

	scanPending(ctx, &out, offerer, answer)
	assert.Contains(t, out.String(), "already negotiated")
	assert.NotEqual(t, rtc.StateFailed, offerer.Session.State())
}
