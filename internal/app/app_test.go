package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetonboard/pkg/auth"
	"fleetonboard/pkg/domain"
	"fleetonboard/pkg/notify"
	"fleetonboard/pkg/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore, *notify.MemoryNotifier) {
	t.Helper()
	memStore := store.NewMemoryStore()
	sessions, err := auth.NewJWTSessionStore("test-secret", time.Minute, "fleetonboard")
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	notifier := notify.NewMemoryNotifier()
	a, err := New(Config{
		Store:         memStore,
		Sessions:      sessions,
		RefreshTokens: store.NewMemoryRefreshTokenStore(),
		Notifier:      notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, memStore, notifier
}

func TestFirstUserBecomesAdmin(t *testing.T) {
	a, memStore, _ := newTestApp(t)

	first, _, _, err := a.SignUp("First@X.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if first.Email != "first@x.com" {
		t.Fatalf("email not normalized: %q", first.Email)
	}
	if ok, _ := memStore.HasRole(first.ID, domain.RoleAdmin); !ok {
		t.Fatal("first user did not receive the admin role")
	}

	second, _, _, err := a.SignUp("second@x.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignUp second: %v", err)
	}
	if ok, _ := memStore.HasRole(second.ID, domain.RoleAdmin); ok {
		t.Fatal("second user received the admin role")
	}
}

func TestSignUpRejectsDuplicateAndWeakPassword(t *testing.T) {
	a, _, _ := newTestApp(t)

	if _, _, _, err := a.SignUp("user@x.com", "short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("weak password err = %v", err)
	}
	if _, _, _, err := a.SignUp("", "passw0rd"); !errors.Is(err, ErrEmailAndPasswordRequired) {
		t.Fatalf("empty email err = %v", err)
	}
	if _, _, _, err := a.SignUp("user@x.com", "passw0rd"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, _, _, err := a.SignUp("USER@x.com", "passw0rd"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestSignInAndTokenResolution(t *testing.T) {
	a, _, _ := newTestApp(t)
	signedUp, _, _, err := a.SignUp("user@x.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	user, access, _, err := a.SignIn("user@x.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != signedUp.ID {
		t.Fatalf("SignIn resolved %q, want %q", user.ID, signedUp.ID)
	}

	resolved, ok := a.UserFromToken(access)
	if !ok || resolved.ID != signedUp.ID {
		t.Fatalf("UserFromToken = (%+v, %v)", resolved, ok)
	}

	if _, _, _, err := a.SignIn("user@x.com", "wrongpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, _, _, err := a.SignIn("ghost@x.com", "passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
}

func TestDisabledUserCannotAuthenticate(t *testing.T) {
	a, memStore, _ := newTestApp(t)
	user, access, _, err := a.SignUp("user@x.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	user.Status = domain.UserDisabled
	if err := memStore.SaveUser(user); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	if _, _, _, err := a.SignIn("user@x.com", "passw0rd"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("disabled sign-in err = %v", err)
	}
	if _, ok := a.UserFromToken(access); ok {
		t.Fatal("disabled user resolved from a live token")
	}
}

func TestRefreshRotates(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, _, refresh, err := a.SignUp("user@x.com", "passw0rd")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, _, next, err := a.Refresh(refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next == refresh {
		t.Fatal("refresh token not rotated")
	}
	if _, _, _, err := a.Refresh(refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replay err = %v", err)
	}
	if _, _, _, err := a.Refresh(""); !errors.Is(err, ErrRefreshTokenRequired) {
		t.Fatalf("empty token err = %v", err)
	}
}

func TestSubmitApplicationDefaultsAndPublishes(t *testing.T) {
	a, memStore, notifier := newTestApp(t)
	ctx := context.Background()

	events, err := notifier.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	id, err := a.SubmitApplication(ctx, domain.Application{ApplicantName: "Thabo Mokoena"})
	if err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	stored, found, err := memStore.GetApplication(id)
	if err != nil || !found {
		t.Fatalf("GetApplication = (%v, %v)", found, err)
	}
	if stored.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", stored.Status)
	}
	if stored.Payload == nil {
		t.Fatal("payload is nil")
	}
	if stored.SubmittedAt.IsZero() || stored.UpdatedAt.Before(stored.SubmittedAt) {
		t.Fatalf("timestamps not defaulted: %+v", stored)
	}

	select {
	case event := <-events:
		if event.Table != domain.TableApplications || event.Op != domain.OpInsert || event.RecordID != id {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}

func TestSubmitApplicationRejectsUnknownStatus(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, err := a.SubmitApplication(context.Background(), domain.Application{Status: "archived"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestBulkUpdateStatusPublishesPerID(t *testing.T) {
	a, memStore, notifier := newTestApp(t)
	ctx := context.Background()
	for _, id := range []string{"a1", "a2"} {
		if err := memStore.InsertApplication(domain.Application{ID: id, Status: domain.StatusPending}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	events, err := notifier.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	touched, err := a.BulkUpdateStatus(ctx, []string{"a1", "a2"}, domain.StatusApproved)
	if err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}
	if touched != 2 {
		t.Fatalf("touched = %d, want 2", touched)
	}

	for i := 0; i < 2; i++ {
		select {
		case event := <-events:
			if event.Op != domain.OpUpdate {
				t.Fatalf("event op = %q, want update", event.Op)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing update event %d", i)
		}
	}

	if _, err := a.BulkUpdateStatus(ctx, nil, domain.StatusApproved); !errors.Is(err, ErrNoApplicationIDs) {
		t.Fatalf("empty ids err = %v", err)
	}
	if _, err := a.BulkUpdateStatus(ctx, []string{"a1"}, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v", err)
	}
}

func TestUploadDocumentWithoutObjectStore(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, _, err := a.UploadDocument(context.Background(), "doc.pdf", nil, 0, "application/pdf")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}
