package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
)

type fakeUsers struct {
	byEmail map[string]string
	err     error
}

func (f fakeUsers) GetUserByEmail(_ context.Context, email string) (*auth.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	uid, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, Email: email}}, nil
}

func TestDirectory_LookupByEmail(t *testing.T) {
	t.Parallel()

	d := NewDirectory(fakeUsers{byEmail: map[string]string{"new@x.com": "U2"}})
	uid, err := d.LookupByEmail(context.Background(), "new@x.com")
	if err != nil || uid != "U2" {
		t.Fatalf("uid=%q err=%v", uid, err)
	}

	boom := errors.New("backend unavailable")
	d = NewDirectory(fakeUsers{err: boom})
	if _, err := d.LookupByEmail(context.Background(), "new@x.com"); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want pass-through", err)
	}
}

type fakeTokens struct {
	uid string
	err error
}

func (f fakeTokens) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Token{UID: f.uid}, nil
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	sub, err := NewVerifier(fakeTokens{uid: "owner1"}).Verify(context.Background(), "tok")
	if err != nil || sub != "owner1" {
		t.Fatalf("sub=%q err=%v", sub, err)
	}

	if _, err := NewVerifier(fakeTokens{}).Verify(context.Background(), "tok"); err == nil {
		t.Fatalf("expected error for empty uid")
	}

	if _, err := NewVerifier(fakeTokens{err: errors.New("expired")}).Verify(context.Background(), "tok"); err == nil {
		t.Fatalf("expected verification error")
	}
}
