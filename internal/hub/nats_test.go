package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/testutil"
)

func TestNATSSink_PublishesBroadcasts(t *testing.T) {
	js, cleanup := testutil.StartJetStream(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	sink, err := NewNATSSink(logger, js)
	require.NoError(t, err)

	// Creating the sink again must not fail on the existing stream.
	_, err = NewNATSSink(logger, js)
	require.NoError(t, err)

	h := New(logger, nil)
	h.Register(sink)

	h.Broadcast([]byte(`{"probability":0.61,"risk_level":"HIGH"}`))
	h.Broadcast([]byte(`{"probability":0.35,"risk_level":"LOW"}`))

	messages := testutil.ConsumeMessages(t, js, ReadingsSubject, 2*time.Second)
	require.Len(t, messages, 2)
	require.Contains(t, string(messages[0]), "HIGH")
	require.Equal(t, 1, h.Count())
}
