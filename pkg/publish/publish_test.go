package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngohuy/hlspacker/pkg/live"
)

func TestNewS3PublisherRequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(S3Config{}, nil)
	require.Error(t, err)
}

func TestLiveEventPublisherBroadcastsToWebsocketClients(t *testing.T) {
	pub := NewLiveEventPublisher(nil, "", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, pub.ServeWS(w, r))
	}))
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	core := live.NewLiveCore(live.DefaultConfig())
	defer core.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx, core)

	_, err = core.AddPartial(0.5, "part0.m4s", true, false, nil)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg LiveEventMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "partial_added", msg.Kind)
	assert.Equal(t, "part0.m4s", msg.URI)
}
