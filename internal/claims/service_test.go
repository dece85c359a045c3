package claims_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/myrjola/foundit/internal/claims"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/matching"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/repositories"
	"github.com/myrjola/foundit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type fakeItems struct {
	mu    sync.Mutex
	items map[string]*models.Item
}

func (f *fakeItems) Get(_ context.Context, id string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *fakeItems) SetAnswerKey(_ context.Context, id string, key matching.AnswerKey, finderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	item.AnswerKey = key
	if finderID != "" {
		item.FinderID = finderID
	}
	return nil
}

func (f *fakeItems) RecordClaim(_ context.Context, attempt models.ClaimAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[attempt.ItemID]
	if !ok {
		return repositories.ErrNotFound
	}
	item.Claims = append(item.Claims, attempt)
	item.IsClaimed = item.IsClaimed || attempt.Verified
	return nil
}

type fakeChats struct {
	opened map[string][2]string
}

func (f *fakeChats) Open(_ context.Context, itemID, finderID, claimantID string) error {
	f.opened[itemID] = [2]string{finderID, claimantID}
	return nil
}

var answerKey = matching.AnswerKey{
	"q1": "black",
	"q2": "apple",
	"q3": "red case",
	"q4": "cracked screen",
	"q5": "sticker on the back",
}

func newService(t *testing.T, limiter *claims.Limiter) (*claims.Service, *fakeItems, *fakeChats) {
	t.Helper()
	items := &fakeItems{
		mu: sync.Mutex{},
		items: map[string]*models.Item{
			"phone": {ID: "phone", ImageURL: "mem://localhost/images/item_images/phone.jpg", FinderID: "finder",
				AnswerKey: answerKey},
			"anonymous": {ID: "anonymous", ImageURL: "mem://localhost/images/item_images/anon.jpg", AnswerKey: answerKey},
			"fresh":     {ID: "fresh", ImageURL: "mem://localhost/images/item_images/fresh.jpg"},
		},
	}
	chats := &fakeChats{opened: map[string][2]string{}}
	if limiter == nil {
		limiter = claims.NewLimiter(0, 0)
	}
	service := claims.NewService(items, chats, matching.NewScorer(), limiter, testhelpers.NewLogger(io.Discard))
	return service, items, chats
}

func TestService_Evaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, items, chats := newService(t, nil)

	// Four of five correct is not enough.
	wrong := map[string]string{"q1": "black", "q2": "apple", "q3": "red case", "q4": "cracked screen", "q5": "none"}
	outcome, err := service.Evaluate(ctx, claims.Request{ItemID: "phone", Answers: wrong, ClaimantID: "eve"})
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.False(t, outcome.RevealImage)
	require.False(t, outcome.ChatEnabled)
	require.Nil(t, outcome.ImageURL)
	require.InDelta(t, 0.8, outcome.Score, 1e-9)
	require.NotEmpty(t, outcome.AttemptID)
	require.Empty(t, chats.opened)

	right := map[string]string{"q1": "Black", "q2": "aple", "q3": "red case", "q4": "cracked screen",
		"q5": "sticker on back"}
	outcome, err = service.Evaluate(ctx, claims.Request{ItemID: "phone", Answers: right, ClaimantID: "owner"})
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.RevealImage)
	require.True(t, outcome.ChatEnabled)
	require.NotNil(t, outcome.ImageURL)
	require.Equal(t, "mem://localhost/images/item_images/phone.jpg", *outcome.ImageURL)
	require.InDelta(t, 1.0, outcome.Score, 1e-9)
	require.Equal(t, [2]string{"finder", "owner"}, chats.opened["phone"])

	// A later failed attempt does not unclaim the item.
	_, err = service.Evaluate(ctx, claims.Request{ItemID: "phone", Answers: nil, ClaimantID: "mallory"})
	require.NoError(t, err)

	item, err := items.Get(ctx, "phone")
	require.NoError(t, err)
	require.True(t, item.IsClaimed)
	require.Len(t, item.Claims, 3)
	require.Equal(t, []bool{false, true, false},
		[]bool{item.Claims[0].Verified, item.Claims[1].Verified, item.Claims[2].Verified})
	require.Equal(t, outcome.AttemptID, item.Claims[2].ID)
}

func TestService_Evaluate_withoutFinderOpensNoChat(t *testing.T) {
	t.Parallel()
	service, _, chats := newService(t, nil)
	answers := map[string]string(answerKey)
	outcome, err := service.Evaluate(context.Background(),
		claims.Request{ItemID: "anonymous", Answers: answers, ClaimantID: "owner"})
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.ChatEnabled)
	require.Empty(t, chats.opened)
}

func TestService_Evaluate_errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _, _ := newService(t, nil)

	tests := []struct {
		name    string
		req     claims.Request
		wantErr error
	}{
		{name: "unknown item", req: claims.Request{ItemID: "nope", ClaimantID: "c"}, wantErr: repositories.ErrNotFound},
		{name: "no answer key", req: claims.Request{ItemID: "fresh", ClaimantID: "c"}, wantErr: claims.ErrAnswerKeyMissing},
		{name: "missing claimant", req: claims.Request{ItemID: "phone", ClaimantID: " "}, wantErr: claims.ErrInvalidRequest},
		{name: "missing item id", req: claims.Request{ClaimantID: "c"}, wantErr: claims.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.Evaluate(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Evaluate_throttled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, items, _ := newService(t, claims.NewLimiter(1, 2))

	req := claims.Request{ItemID: "phone", Answers: map[string]string{"q1": "guess"}, ClaimantID: "eve"}
	for range 2 {
		_, err := service.Evaluate(ctx, req)
		require.NoError(t, err)
	}
	_, err := service.Evaluate(ctx, req)
	require.ErrorIs(t, err, claims.ErrTooManyAttempts)

	// Other claimants have their own budget.
	req.ClaimantID = "owner"
	_, err = service.Evaluate(ctx, req)
	require.NoError(t, err)

	item, err := items.Get(ctx, "phone")
	require.NoError(t, err)
	require.Len(t, item.Claims, 3)
}

func TestService_SetAnswerKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, items, _ := newService(t, nil)

	err := service.SetAnswerKey(ctx, "fresh", map[string]string{}, "finder")
	require.ErrorIs(t, err, claims.ErrInvalidRequest)

	err = service.SetAnswerKey(ctx, "nope", map[string]string{"q1": "x"}, "")
	require.True(t, errors.Is(err, repositories.ErrNotFound))

	require.NoError(t, service.SetAnswerKey(ctx, "fresh", map[string]string{"q1": "blue"}, "finder-2"))
	item, err := items.Get(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, matching.AnswerKey{"q1": "blue"}, item.AnswerKey)
	require.Equal(t, "finder-2", item.FinderID)
}

func TestLimiter(t *testing.T) {
	t.Parallel()
	unlimited := claims.NewLimiter(0, 0)
	for range 100 {
		require.True(t, unlimited.Allow("item", "claimant"))
	}

	limited := claims.NewLimiter(1, 1)
	require.True(t, limited.Allow("item", "claimant"))
	require.False(t, limited.Allow("item", "claimant"))
	require.True(t, limited.Allow("other", "claimant"))
}
