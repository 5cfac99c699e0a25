package entity

import (
	"errors"
	"testing"
	"time"
)

func mustRecord(t *testing.T, s string) Record {
	t.Helper()
	r, err := DecodeRecord([]byte(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return r
}

func TestPostKind_Precedence(t *testing.T) {
	cases := []struct {
		name string
		json string
		want Kind
	}{
		{"deleted", `{"delete":{"status":{"id":1}},"retweeted_status":{"id_str":"2"}}`, KindDeleted},
		{"withheld", `{"status_withheld":{"id":1},"retweeted_status":{"id_str":"2"}}`, KindWithheld},
		{"quoted retweet", `{"retweeted_status":{"id_str":"2"},"quoted_status":{"id_str":"3"}}`, KindRetweet},
		{"quote", `{"quoted_status":{"id_str":"3"},"in_reply_to_status_id":9}`, KindQuote},
		{"reply", `{"in_reply_to_status_id":9}`, KindReply},
		{"null reply", `{"in_reply_to_status_id":null}`, KindStatus},
		{"status", `{"text":"hi"}`, KindStatus},
	}
	for _, c := range cases {
		p := NewPost(mustRecord(t, c.json))
		if got := p.Kind(); got != c.want {
			t.Errorf("%s: kind = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestPost_MissingFieldsAreAbsent(t *testing.T) {
	p := NewPost(mustRecord(t, `{"id_str":"1"}`))
	if p.Author().Present() {
		t.Error("expected absent author")
	}
	if p.Lang().Present() {
		t.Error("expected absent lang")
	}
	if p.ReplyToHandle().Present() {
		t.Error("expected absent reply handle")
	}
	if len(p.Mentions()) != 0 || len(p.Hashtags()) != 0 {
		t.Errorf("mentions = %v, hashtags = %v, want none", p.Mentions(), p.Hashtags())
	}
	if p.Text() != "" {
		t.Errorf("text = %q, want empty", p.Text())
	}
}

func TestPost_IDKeepsLargeNumbers(t *testing.T) {
	p := NewPost(mustRecord(t, `{"id":1234567890123456789}`))
	if p.ID() != "1234567890123456789" {
		t.Errorf("id = %q", p.ID())
	}
}

func TestPost_InnerPostsOrder(t *testing.T) {
	p := NewPost(mustRecord(t, `{
		"id_str":"1",
		"retweeted_status":{"id_str":"2","quoted_status":{"id_str":"3"}},
		"quoted_status":{"id_str":"4","retweeted_status":{"id_str":"5"}}
	}`))
	var ids []string
	for _, in := range p.InnerPosts() {
		ids = append(ids, in.ID())
	}
	want := []string{"2", "3", "4", "5"}
	if len(ids) != len(want) {
		t.Fatalf("inner = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("inner = %v, want %v", ids, want)
		}
	}
}

func TestPost_TextPrefersExtendedAndUnescapes(t *testing.T) {
	p := NewPost(mustRecord(t, `{
		"text":"short &amp; cut…",
		"extended_tweet":{"full_text":"long &amp; whole","entities":{"hashtags":[{"text":"GoLang"}],"user_mentions":[{"screen_name":"Bob"}]}},
		"entities":{"hashtags":[],"user_mentions":[]}
	}`))
	if p.Text() != "long & whole" {
		t.Errorf("text = %q, want %q", p.Text(), "long & whole")
	}
	if h := p.Hashtags(); len(h) != 1 || h[0] != "golang" {
		t.Errorf("hashtags = %v, want [golang]", h)
	}
	if m := p.Mentions(); len(m) != 1 || m[0] != "Bob" {
		t.Errorf("mentions = %v, want [Bob]", m)
	}
}

func TestPost_CreatedAt(t *testing.T) {
	p := NewPost(mustRecord(t, `{"created_at":"Wed Oct 10 20:19:24 +0000 2018"}`))
	got, err := p.CreatedAt()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("created = %v, want %v", got, want)
	}
}

func TestPost_CreatedAtBroken(t *testing.T) {
	for _, s := range []string{`{}`, `{"created_at":"not a date at all"}`} {
		_, err := NewPost(mustRecord(t, s)).CreatedAt()
		if !errors.Is(err, ErrTimestamp) {
			t.Errorf("%s: err = %v, want ErrTimestamp", s, err)
		}
	}
}

func TestAccount_Fields(t *testing.T) {
	a := NewAccount(mustRecord(t, `{
		"id_str":"42","screen_name":"Alice","followers_count":10,
		"friends_count":3,"statuses_count":99,"verified":true,
		"created_at":"2019-01-02T03:04:05Z"
	}`))
	if a.ID() != "42" {
		t.Errorf("id = %q", a.ID())
	}
	if a.Handle().Or("") != "Alice" {
		t.Errorf("handle = %q", a.Handle().Or(""))
	}
	if a.Followers().Or(0) != 10 || a.Following().Or(0) != 3 || a.Posts().Or(0) != 99 {
		t.Errorf("counts = %d/%d/%d", a.Followers().Or(0), a.Following().Or(0), a.Posts().Or(0))
	}
	if !a.Verified().Or(false) {
		t.Error("expected verified")
	}
	if a.Location().Present() {
		t.Error("expected absent location")
	}
	if _, err := a.CreatedAt(); err != nil {
		t.Errorf("created: %v", err)
	}
}

func TestDecodeChunk_Invalid(t *testing.T) {
	if _, err := DecodeChunk([]byte(`[{"id":1},`)); err == nil {
		t.Fatal("expected error")
	}
}
