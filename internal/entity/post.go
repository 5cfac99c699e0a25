package entity

import (
	"html"
	"strings"
	"time"
)

// Kind is the classification of a post. The four interaction kinds double as
// edge types in the graph.
type Kind string

const (
	KindDeleted  Kind = "deleted"
	KindWithheld Kind = "withheld"
	KindRetweet  Kind = "retweet"
	KindQuote    Kind = "quote"
	KindReply    Kind = "reply"
	KindStatus   Kind = "status"
)

// Post is a view over a raw post record.
type Post struct {
	raw Record
}

// NewPost wraps r.
func NewPost(r Record) Post { return Post{raw: r} }

// Raw returns the underlying record.
func (p Post) Raw() Record { return p.raw }

// ID returns the post id ("id_str", falling back to "id").
func (p Post) ID() string {
	if s, ok := p.raw.String("id_str").Get(); ok && s != "" {
		return s
	}
	return p.raw.String("id").Or("")
}

// Author returns the embedded account record of the poster.
func (p Post) Author() Opt[Account] {
	u, ok := p.raw.Sub("user").Get()
	if !ok {
		return None[Account]()
	}
	return Some(NewAccount(u))
}

// CreatedAt returns the creation time of the post. It fails with
// ErrTimestamp when the field is missing or unparseable.
func (p Post) CreatedAt() (time.Time, error) { return p.raw.Time("created_at") }

// Kind classifies the post. Exactly one kind holds, in precedence order
// deleted, withheld, retweet, quote, reply, status.
func (p Post) Kind() Kind {
	switch {
	case p.IsDeleted():
		return KindDeleted
	case p.IsWithheld():
		return KindWithheld
	case p.IsRetweet():
		return KindRetweet
	case p.IsQuote():
		return KindQuote
	case p.IsReply():
		return KindReply
	default:
		return KindStatus
	}
}

func (p Post) IsDeleted() bool  { return p.raw.Has("delete") }
func (p Post) IsWithheld() bool { return p.raw.Has("status_withheld") }
func (p Post) IsRetweet() bool  { return p.RetweetedPost().Present() }

// IsQuote reports a quote that is not also a retweet; a retweet of a quote
// classifies as a retweet.
func (p Post) IsQuote() bool { return p.QuotedPost().Present() && !p.IsRetweet() }

// IsReply reports whether the post answers another post.
func (p Post) IsReply() bool {
	return p.raw.Field("in_reply_to_status_id").Present() ||
		p.raw.Field("in_reply_to_status_id_str").Present()
}

// IsStatus reports an original post: not a retweet, quote or reply.
func (p Post) IsStatus() bool { return !(p.IsRetweet() || p.IsQuote() || p.IsReply()) }

// RetweetedPost returns the nested post this one retweets.
func (p Post) RetweetedPost() Opt[Post] { return p.nested("retweeted_status") }

// QuotedPost returns the nested post this one quotes.
func (p Post) QuotedPost() Opt[Post] { return p.nested("quoted_status") }

func (p Post) nested(key string) Opt[Post] {
	r, ok := p.raw.Sub(key).Get()
	if !ok {
		return None[Post]()
	}
	return Some(NewPost(r))
}

// InnerPosts unwraps nested retweeted and quoted posts recursively, depth
// first, retweeted before quoted.
func (p Post) InnerPosts() []Post {
	var out []Post
	if rt, ok := p.RetweetedPost().Get(); ok {
		out = append(out, rt)
		out = append(out, rt.InnerPosts()...)
	}
	if q, ok := p.QuotedPost().Get(); ok {
		out = append(out, q)
		out = append(out, q.InnerPosts()...)
	}
	return out
}

// Text returns the post text with HTML entities decoded. The untruncated
// extended text wins over the default text field.
func (p Post) Text() string {
	if ext, ok := p.raw.Sub("extended_tweet").Get(); ok {
		if full, ok := ext.String("full_text").Get(); ok {
			return html.UnescapeString(full)
		}
	}
	if full, ok := p.raw.String("full_text").Get(); ok {
		return html.UnescapeString(full)
	}
	return html.UnescapeString(p.raw.String("text").Or(""))
}

// Lang returns the language code of the post.
func (p Post) Lang() Opt[string] { return p.raw.String("lang") }

// ReplyToPostID returns the id of the post being answered.
func (p Post) ReplyToPostID() Opt[string] {
	if s, ok := p.raw.String("in_reply_to_status_id_str").Get(); ok {
		return Some(s)
	}
	return p.raw.String("in_reply_to_status_id")
}

// ReplyToAccountID returns the id of the account being answered.
func (p Post) ReplyToAccountID() Opt[string] {
	if s, ok := p.raw.String("in_reply_to_user_id_str").Get(); ok {
		return Some(s)
	}
	return p.raw.String("in_reply_to_user_id")
}

// ReplyToHandle returns the screen name of the account being answered.
func (p Post) ReplyToHandle() Opt[string] { return p.raw.String("in_reply_to_screen_name") }

// Mentions returns the mentioned screen names in order of appearance.
func (p Post) Mentions() []string {
	var out []string
	for _, m := range p.entities().List("user_mentions") {
		if sn, ok := m.String("screen_name").Get(); ok {
			out = append(out, sn)
		}
	}
	return out
}

// Hashtags returns the lowercased hashtags in order of appearance.
func (p Post) Hashtags() []string {
	var out []string
	for _, h := range p.entities().List("hashtags") {
		if t, ok := h.String("text").Get(); ok {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

// URLs returns the non-empty expanded URLs of the post.
func (p Post) URLs() []string {
	var out []string
	for _, u := range p.entities().List("urls") {
		if s := u.String("expanded_url").Or(""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// entities prefers the entity block of the extended text, which covers
// mentions and hashtags cut off by truncation.
func (p Post) entities() Record {
	if ext, ok := p.raw.Sub("extended_tweet").Get(); ok {
		if e, ok := ext.Sub("entities").Get(); ok {
			return e
		}
	}
	return p.raw.Sub("entities").Or(Record{})
}
