package relay

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRelayBridgesAndHashes(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	producer, err := net.Dial("tcp", s.InputAddr())
	require.NoError(t, err)

	consumer, err := net.Dial("tcp", s.OutputAddr())
	require.NoError(t, err)

	_, err = producer.Write([]byte(`{"type":"document","data":{"title":"x"}}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, producer.Close())

	consumer.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(consumer).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, `"hash":"`)
	require.Contains(t, line, `"type":"document"`)

	require.NoError(t, <-done)
}

func TestRelayRejectsHashMismatch(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	producer, err := net.Dial("tcp", s.InputAddr())
	require.NoError(t, err)
	consumer, err := net.Dial("tcp", s.OutputAddr())
	require.NoError(t, err)
	defer consumer.Close()

	_, err = producer.Write([]byte(`{"type":"document","data":{"title":"x"},"hash":"bogus"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, producer.Close())

	err = <-done
	require.Error(t, err)
}
