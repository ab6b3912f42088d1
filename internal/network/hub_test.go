package network

import (
	"os"
	"slices"
	"testing"

	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestBroadcaster_SendTo(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Register("s1")

	if !b.SendTo("s1", api.ServerResponse{Seq: 1}) {
		t.Fatal("send to registered session failed")
	}
	if got := <-ch; got.Seq != 1 {
		t.Errorf("seq = %d", got.Seq)
	}
	if b.SendTo("nope", api.ServerResponse{}) {
		t.Error("send to unknown session succeeded")
	}

	// Полный канал: ответ теряется, отправитель не блокируется
	for i := 0; i < cap(ch); i++ {
		b.SendTo("s1", api.ServerResponse{Seq: i})
	}
	if b.SendTo("s1", api.ServerResponse{}) {
		t.Error("send to full channel succeeded")
	}
}

func TestBroadcaster_Lifecycle(t *testing.T) {
	b := NewBroadcaster()
	old := b.Register("b")
	b.Register("a")

	// Повторная регистрация закрывает старый канал
	renewed := b.Register("b")
	if _, open := <-old; open {
		t.Error("old channel still open")
	}

	if b.SubscriberCount() != 2 || !b.HasSubscriber("a") {
		t.Errorf("count = %d", b.SubscriberCount())
	}
	if ids := b.IDs(); !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("ids = %v", ids)
	}

	b.Broadcast(api.ServerResponse{Type: api.ResponseUpdate})
	if got := <-renewed; got.Type != api.ResponseUpdate {
		t.Errorf("broadcast = %+v", got)
	}

	b.Unregister("b")
	b.Unregister("b")
	if b.HasSubscriber("b") || b.SubscriberCount() != 1 {
		t.Error("unregister did not remove session")
	}
	if _, open := <-renewed; open {
		t.Error("channel not closed on unregister")
	}
}
