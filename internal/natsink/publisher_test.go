package natsink

import (
	"io"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// TestConnect_Unreachable tests that an unreachable server is reported
func TestConnect_Unreachable(t *testing.T) {
	p, err := Connect(Config{URL: "nats://127.0.0.1:1"}, quietLogger())
	assert.Nil(t, p)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "failed to connect to NATS at nats://127.0.0.1:1")
	}
}

// TestPublisher_Send tests that lines arrive unchanged on the configured subject
func TestPublisher_Send(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	tests := []struct {
		name    string
		subject string
		expect  string
	}{
		{name: "default subject", subject: "", expect: DefaultSubject},
		{name: "custom subject", subject: "feeds.sbs.lab", expect: "feeds.sbs.lab"},
	}

	line := "MSG,3,111,11111,4840D6,111111,2008/11/28,23:48:18.611,2008/11/28,23:48:18.611,,38000,,,52.25720,3.91937,,,0,0,0,0"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := nats.Connect(srv.ClientURL())
			require.NoError(t, err)
			defer sub.Close()

			received := make(chan *nats.Msg, 4)
			_, err = sub.ChanSubscribe(tt.expect, received)
			require.NoError(t, err)
			require.NoError(t, sub.Flush())

			p, err := Connect(Config{URL: srv.ClientURL(), Subject: tt.subject}, quietLogger())
			require.NoError(t, err)
			assert.Equal(t, "nats://"+tt.expect, p.String())

			require.NoError(t, p.Send(line))
			require.NoError(t, p.Close())
			assert.True(t, p.conn.IsClosed())

			select {
			case msg := <-received:
				assert.Equal(t, tt.expect, msg.Subject)
				assert.Equal(t, line, string(msg.Data))
			case <-time.After(2 * time.Second):
				t.Fatal("line was not delivered")
			}
		})
	}
}

// TestPublisher_SendAfterClose tests that publishing on a closed publisher fails
func TestPublisher_SendAfterClose(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	p, err := Connect(Config{URL: srv.ClientURL()}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	err = p.Send("STA,,,,4840D6,,,,,,RM")
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "failed to publish to "+DefaultSubject)
	}
}
