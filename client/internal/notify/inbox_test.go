package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zestro/domain"
	"zestro/lifecycle"
)

type fakeAPI struct {
	list      []domain.Notification
	err       error
	marked    []string
	markedAll int
}

func (f *fakeAPI) Notifications(context.Context, int) ([]domain.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, id string) (*domain.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.marked = append(f.marked, id)
	return &domain.Notification{ID: id, Read: true}, nil
}

func (f *fakeAPI) MarkAllRead(context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.markedAll++
	return 1, nil
}

func loaded(t *testing.T, list ...domain.Notification) (*Inbox, *fakeAPI) {
	t.Helper()
	client := &fakeAPI{list: list}
	in := NewInbox(client)
	require.NoError(t, in.Load(context.Background()))
	return in, client
}

func TestInbox_Load(t *testing.T) {
	in, _ := loaded(t,
		domain.Notification{ID: "n2"},
		domain.Notification{ID: "n1", Read: true},
	)

	assert.Len(t, in.Items(), 2)
	assert.Equal(t, 1, in.Unread())
}

func TestInbox_LoadFailureKeepsItems(t *testing.T) {
	in, client := loaded(t, domain.Notification{ID: "n1"})
	client.err = lifecycle.ErrNetworkFailure

	assert.ErrorIs(t, in.Load(context.Background()), lifecycle.ErrNetworkFailure)
	assert.Len(t, in.Items(), 1)
	assert.Equal(t, 1, in.Unread())
}

func TestInbox_Push(t *testing.T) {
	in, _ := loaded(t, domain.Notification{ID: "n1", Read: true})

	assert.True(t, in.Push(domain.Notification{ID: "n2", Message: "Your order #abc is now READY"}))
	assert.False(t, in.Push(domain.Notification{ID: "n2", Message: "Your order #abc is now READY"}))

	items := in.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, 1, in.Unread())
}

func TestInbox_MarkRead(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantUnread int
	}{
		{name: "unread item", id: "n1", wantUnread: 1},
		{name: "already read", id: "n3", wantUnread: 2},
		{name: "unknown id", id: "nope", wantUnread: 2},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			in, client := loaded(t,
				domain.Notification{ID: "n1"},
				domain.Notification{ID: "n2"},
				domain.Notification{ID: "n3", Read: true},
			)

			require.NoError(t, in.MarkRead(context.Background(), testCase.id))

			assert.Equal(t, []string{testCase.id}, client.marked)
			assert.Equal(t, testCase.wantUnread, in.Unread())
		})
	}
}

func TestInbox_MarkReadTwice(t *testing.T) {
	in, _ := loaded(t, domain.Notification{ID: "n1"}, domain.Notification{ID: "n2"})

	require.NoError(t, in.MarkRead(context.Background(), "n1"))
	require.NoError(t, in.MarkRead(context.Background(), "n1"))

	assert.Equal(t, 1, in.Unread())
}

func TestInbox_MarkReadServerFailure(t *testing.T) {
	in, client := loaded(t, domain.Notification{ID: "n1"})
	client.err = lifecycle.ErrNetworkFailure

	assert.ErrorIs(t, in.MarkRead(context.Background(), "n1"), lifecycle.ErrNetworkFailure)
	assert.Equal(t, 1, in.Unread())
	assert.False(t, in.Items()[0].Read)

	assert.ErrorIs(t, in.MarkAllRead(context.Background()), lifecycle.ErrNetworkFailure)
	assert.Equal(t, 1, in.Unread())
}

func TestInbox_MarkAllRead(t *testing.T) {
	in, client := loaded(t, domain.Notification{ID: "n1"}, domain.Notification{ID: "n2"})

	require.NoError(t, in.MarkAllRead(context.Background()))

	assert.Equal(t, 1, client.markedAll)
	assert.Equal(t, 0, in.Unread())
	for _, n := range in.Items() {
		assert.True(t, n.Read)
	}
}
