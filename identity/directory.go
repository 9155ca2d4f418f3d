package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/studyhive/contentcache/remote"
)

// Directory reads and maintains user records in the remote document store.
//
// The full user list is cached after the first read and reused until
// Invalidate is called or a role update goes through.
type Directory struct {
	docs remote.DocumentStore

	mu    sync.Mutex
	users []User
}

// NewDirectory creates a directory over the users collection.
func NewDirectory(docs remote.DocumentStore) *Directory {
	return &Directory{docs: docs}
}

// User returns the user record for a uid.
func (d *Directory) User(ctx context.Context, uid string) (*User, error) {
	raw, err := d.docs.GetDocument(ctx, remote.CollectionUsers, uid)
	if err != nil {
		return nil, fmt.Errorf("load user %q: %w", uid, err)
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", uid, err)
	}
	user.UID = uid
	if !user.Access.Valid() {
		user.Access = AccessUser
	}
	return &user, nil
}

// Users returns all user records, sorted by uid. The list is cached; call
// Invalidate to force a re-read.
//
// The document store has no native listing, so the list lives in a single
// roster document keyed "_roster" mapping uid to user record.
func (d *Directory) Users(ctx context.Context) ([]User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.users != nil {
		return append([]User(nil), d.users...), nil
	}

	raw, err := d.docs.GetDocument(ctx, remote.CollectionUsers, rosterID)
	if err != nil {
		return nil, fmt.Errorf("load user roster: %w", err)
	}
	var roster map[string]User
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("decode user roster: %w", err)
	}

	users := make([]User, 0, len(roster))
	for uid, user := range roster {
		user.UID = uid
		if !user.Access.Valid() {
			user.Access = AccessUser
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })

	d.users = users
	return append([]User(nil), users...), nil
}

// Invalidate drops the cached user list.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = nil
}

// UpdateRole changes a user's access tier. Only admins may change roles,
// and only to member or user; the admin tier is never granted this way.
func (d *Directory) UpdateRole(ctx context.Context, actor *User, uid string, role Access) error {
	if actor == nil || !actor.Access.CanManageRoles() {
		return fmt.Errorf("%w: role updates require admin access", ErrUnauthorized)
	}
	if role != AccessMember && role != AccessUser {
		return fmt.Errorf("cannot assign role %q", role)
	}

	user, err := d.User(ctx, uid)
	if err != nil {
		return err
	}
	user.Access = role

	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := d.docs.PutDocument(ctx, remote.CollectionUsers, uid, raw); err != nil {
		return fmt.Errorf("update user %q: %w", uid, err)
	}
	if err := d.updateRoster(ctx, uid, *user); err != nil {
		return err
	}

	d.Invalidate()
	return nil
}

// updateRoster rewrites the roster document so Users reflects the change
// on its next read. An absent roster is treated as empty.
func (d *Directory) updateRoster(ctx context.Context, uid string, user User) error {
	roster := make(map[string]User)
	raw, err := d.docs.GetDocument(ctx, remote.CollectionUsers, rosterID)
	switch {
	case errors.Is(err, remote.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load user roster: %w", err)
	default:
		if err := json.Unmarshal(raw, &roster); err != nil {
			return fmt.Errorf("decode user roster: %w", err)
		}
	}

	roster[uid] = user
	updated, err := json.Marshal(roster)
	if err != nil {
		return err
	}
	if err := d.docs.PutDocument(ctx, remote.CollectionUsers, rosterID, updated); err != nil {
		return fmt.Errorf("update user roster: %w", err)
	}
	return nil
}

const rosterID = "_roster"
