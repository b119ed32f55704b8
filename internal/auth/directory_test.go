package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/brporter/lakegate/internal/identity"
	"github.com/brporter/lakegate/internal/idptest"
)

var serviceCred = identity.Credential{Token: idptest.ServiceToken, Class: identity.ServiceIdentityToken}

func TestFindUser_FirstMatchWins(t *testing.T) {
	idp := idptest.New(t)
	idp.AddDirectoryUser(idptest.User{ID: "first", UserName: "t@x.com", Groups: []idptest.Group{{Display: "A", Value: "1"}}})
	idp.AddDirectoryUser(idptest.User{ID: "second", UserName: "t@x.com", Groups: []idptest.Group{{Display: "Z", Value: "9"}}})
	d := NewDirectory(testConfig(idp), nil, slog.Default())

	entry, err := d.FindUser(context.Background(), serviceCred, "t@x.com")
	if err != nil {
		t.Fatalf("FindUser returned unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a directory entry")
	}
	if entry.ID != "first" {
		t.Errorf("ID = %q, want first", entry.ID)
	}
	if len(entry.Groups) != 1 || entry.Groups[0] != "A" {
		t.Errorf("Groups = %v, want [A]", entry.Groups)
	}
	if got := idp.LastFilter(); got != `userName eq "t@x.com"` {
		t.Errorf("filter = %q", got)
	}
}

func TestFindUser_NotFound(t *testing.T) {
	idp := idptest.New(t)
	d := NewDirectory(testConfig(idp), nil, slog.Default())

	entry, err := d.FindUser(context.Background(), serviceCred, "nobody@x.com")
	if err != nil {
		t.Fatalf("FindUser returned unexpected error: %v", err)
	}
	if entry != nil {
		t.Errorf("expected no entry, got %+v", entry)
	}
}

func TestFindUser_Failure(t *testing.T) {
	idp := idptest.New(t)
	idp.UsersStatus = http.StatusForbidden
	d := NewDirectory(testConfig(idp), nil, slog.Default())

	_, err := d.FindUser(context.Background(), serviceCred, "t@x.com")
	var derr *DirectoryError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DirectoryError, got %v", err)
	}
	if derr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want %d", derr.StatusCode, http.StatusForbidden)
	}
}

func TestUserNameFilter_Escapes(t *testing.T) {
	if got := userNameFilter(`a"b`); got != `userName eq "a\"b"` {
		t.Errorf("quote escaping: %q", got)
	}
	if got := userNameFilter(`a\b`); got != `userName eq "a\\b"` {
		t.Errorf("backslash escaping: %q", got)
	}
}
