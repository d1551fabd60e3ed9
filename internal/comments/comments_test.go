package comments

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"photoedit-backend/internal/store"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"no mentions", "looks great, ship it", nil},
		{"single mention", "hey @maya can you check the shadows", []string{"maya"}},
		{"multiple mentions", "@maya @jon.r please review", []string{"maya", "jon.r"}},
		{"duplicates collapse", "@maya and again @maya", []string{"maya"}},
		{"trailing punctuation stripped", "ping @maya. thanks", []string{"maya"}},
		{"bare at sign", "meet @ noon", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMentions(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThreadAddAndList(t *testing.T) {
	thread := NewThread(store.NewMemoryStore())
	assetID := uuid.New()
	ctx := context.Background()

	c, err := thread.Add(ctx, assetID, "maya", "needs warmth @jon", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		t.Fatal("comment not populated by store")
	}
	if !reflect.DeepEqual(c.Mentions, []string{"jon"}) {
		t.Fatalf("mentions = %v", c.Mentions)
	}

	versionID := int64(2)
	if _, err := thread.Add(ctx, assetID, "jon", "fixed in v2", &versionID, true); err != nil {
		t.Fatal(err)
	}

	cs, err := thread.List(ctx, assetID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %d comments, want 2", len(cs))
	}
	if cs[1].VersionID == nil || *cs[1].VersionID != 2 {
		t.Fatalf("version pin lost: %+v", cs[1])
	}
	if !cs[1].IsInternal {
		t.Fatal("internal flag lost")
	}
}

func TestThreadRejectsEmptyContent(t *testing.T) {
	thread := NewThread(store.NewMemoryStore())
	if _, err := thread.Add(context.Background(), uuid.New(), "maya", "   ", nil, false); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
}
