package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/errors"
	"carrental/internal/model"
)

func TestParseUserUpdate(t *testing.T) {
	tests := []struct {
		property string
		value    string
		want     UserUpdate
		wantErr  bool
	}{
		{property: "Name", value: "Ana", want: SetName("Ana")},
		{property: "email", value: "a@b.com", want: SetEmail("a@b.com")},
		{property: "PhoneNumber", value: "555", want: SetPhoneNumber("555")},
		{property: "address", value: "Main St", want: SetAddress("Main St")},
		{property: "description", value: "vip", want: SetDescription("vip")},
		{property: "AccessLevel", value: "worker", want: SetAccessLevel(model.AccessWorker)},
		{property: "AccessLevel", value: "root", wantErr: true},
		{property: "PasswordHash", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.property+"="+tt.value, func(t *testing.T) {
			got, err := ParseUserUpdate(tt.property, tt.value)
			if tt.wantErr {
				assert.Equal(t, errors.KindValidation, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUser_SoftDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.addUser(t, "Ana", "ana@example.com", model.AccessUser)
	bob := env.addUser(t, "Bob", "bob@example.com", model.AccessUser)

	listed, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	require.NoError(t, env.users.DeleteUser(ctx, ana.ID))

	listed, err = env.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, bob.ID, listed[0].ID)

	_, err = env.users.UpdateUser(ctx, ana.ID, SetName("Ana B"))
	assert.ErrorIs(t, err, errors.ErrUserDeleted)
	assert.EqualError(t, err, "User is deleted")

	_, err = env.users.AddUserData(ctx, ana.ID, UserData{Address: "x"}, false)
	assert.ErrorIs(t, err, errors.ErrUserDeleted)

	_, err = env.users.GetUser(ctx, ana.ID)
	assert.ErrorIs(t, err, errors.ErrUserDeleted)

	err = env.users.DeleteUser(ctx, ana.ID)
	assert.ErrorIs(t, err, errors.ErrUserAlreadyDeleted)

	names, err := env.users.RenterNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", names[ana.ID], "disabled renters keep their name on rentals")

	assert.ErrorIs(t, env.users.DeleteUser(ctx, uuid.New()), errors.ErrUserNotFound)
}

func TestUser_UpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.addUser(t, "Ana", "ana@example.com", model.AccessUser)
	env.addUser(t, "Bob", "bob@example.com", model.AccessUser)

	view, err := env.users.UpdateUser(ctx, ana.ID, SetPhoneNumber("555-0101"))
	require.NoError(t, err)
	assert.Equal(t, "555-0101", view.PhoneNumber)

	_, err = env.users.UpdateUser(ctx, ana.ID, SetEmail("BOB@example.com"))
	assert.ErrorIs(t, err, errors.ErrEmailTaken)

	_, err = env.users.UpdateUser(ctx, ana.ID, SetEmail("not-an-email"))
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	view, err = env.users.UpdateUser(ctx, ana.ID, SetEmail("ana.new@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ana.new@example.com", view.Email)

	_, err = env.users.UpdateUser(ctx, ana.ID, SetName(""))
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	view, err = env.users.UpdateUser(ctx, ana.ID, SetAccessLevel(model.AccessWorker))
	require.NoError(t, err)
	assert.Equal(t, model.AccessWorker, view.AccessLevel)

	listed, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range listed {
		if u.ID == ana.ID {
			assert.Equal(t, "ana.new@example.com", u.Email)
		}
	}
}

func TestUser_AddUserData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.addUser(t, "Ana", "ana@example.com", model.AccessUser)

	view, err := env.users.AddUserData(ctx, ana.ID, UserData{Name: "Other", Address: "Main St 1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.Name)
	assert.Equal(t, "Main St 1", view.Address)

	view, err = env.users.AddUserData(ctx, ana.ID, UserData{Name: "Ana Maria", Address: ""}, true)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", view.Name)
	assert.Equal(t, "Main St 1", view.Address)
}

func TestUser_Search(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "Ana", "ana@example.com", model.AccessUser)
	carl := env.addUser(t, "Carl", "carl@fleet.io", model.AccessWorker)

	found, err := env.users.SearchUsers(ctx, "FLEET")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, carl.ID, found[0].ID)

	all, err := env.users.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
