package entity

import "time"

// Account is a view over a raw account (user) record.
type Account struct {
	raw Record
}

// NewAccount wraps r.
func NewAccount(r Record) Account { return Account{raw: r} }

// Raw returns the underlying record.
func (a Account) Raw() Record { return a.raw }

// ID returns the stable account id ("id_str", falling back to "id").
func (a Account) ID() string {
	if s, ok := a.raw.String("id_str").Get(); ok && s != "" {
		return s
	}
	return a.raw.String("id").Or("")
}

// Handle returns the screen name as recorded (not lowercased).
func (a Account) Handle() Opt[string] { return a.raw.String("screen_name") }

func (a Account) Name() Opt[string] { return a.raw.String("name") }
func (a Account) Description() Opt[string] { return a.raw.String("description") }
func (a Account) Location() Opt[string] { return a.raw.String("location") }
func (a Account) Verified() Opt[bool] { return a.raw.Bool("verified") }
func (a Account) Followers() Opt[int64] { return a.raw.Int("followers_count") }
func (a Account) Following() Opt[int64] { return a.raw.Int("friends_count") }
func (a Account) Posts() Opt[int64] { return a.raw.Int("statuses_count") }

// CreatedAt returns the account creation time. It fails with ErrTimestamp
// when the field is missing or unparseable.
func (a Account) CreatedAt() (time.Time, error) { return a.raw.Time("created_at") }
