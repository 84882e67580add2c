package service_test

import (
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/internal/testutil"
)

func validUserInput(email string) service.CreateUserInput {
	return service.CreateUserInput{
		Name:     "Jane Customer",
		Email:    email,
		Address:  "42 Elm Street",
		Password: testutil.DefaultPassword,
	}
}

func (s *ServiceSuite) TestCreateUser_AdminCanCreateAnyRole() {
	for _, role := range models.Roles {
		in := validUserInput(string(role) + "-new@example.com")
		in.Role = string(role)

		user, err := s.users.CreateUser(s.ctx, s.adminActor(), in)
		s.Require().NoError(err)
		s.Equal(role, user.Role)
		s.NotEmpty(user.ID)
		s.NotEqual(testutil.DefaultPassword, user.PasswordHash)
	}
}

func (s *ServiceSuite) TestCreateUser_DefaultsToUserRole() {
	user, err := s.users.CreateUser(s.ctx, s.adminActor(), validUserInput("plain@example.com"))
	s.Require().NoError(err)
	s.Equal(models.RoleUser, user.Role)
}

func (s *ServiceSuite) TestCreateUser_RequiresAdmin() {
	_, actor := s.newUser()

	_, err := s.users.CreateUser(s.ctx, actor, validUserInput("x@example.com"))
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.users.CreateUser(s.ctx, policy.Anonymous, validUserInput("x@example.com"))
	s.ErrorIs(err, service.ErrUnauthorized)
}

func (s *ServiceSuite) TestCreateUser_DuplicateEmail() {
	_, err := s.users.CreateUser(s.ctx, s.adminActor(), validUserInput("ADMIN@example.com"))
	s.ErrorIs(err, service.ErrEmailExists)
}

func (s *ServiceSuite) TestCreateUser_ValidationFields() {
	testCases := []struct {
		name  string
		edit  func(*service.CreateUserInput)
		field string
	}{
		{"short_name", func(in *service.CreateUserInput) { in.Name = "Jo" }, "name"},
		{"long_name", func(in *service.CreateUserInput) { in.Name = "This Name Is Much Too Long For The Directory" }, "name"},
		{"bad_email", func(in *service.CreateUserInput) { in.Email = "not-an-email" }, "email"},
		{"empty_address", func(in *service.CreateUserInput) { in.Address = "  " }, "address"},
		{"short_password", func(in *service.CreateUserInput) { in.Password = "Ab1!" }, "password"},
		{"long_password", func(in *service.CreateUserInput) { in.Password = "Abcdefghijklmnop1!" }, "password"},
		{"no_upper", func(in *service.CreateUserInput) { in.Password = "password123!" }, "password"},
		{"no_special", func(in *service.CreateUserInput) { in.Password = "Password1234" }, "password"},
		{"unknown_role", func(in *service.CreateUserInput) { in.Role = "superuser" }, "role"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			in := validUserInput("valid@example.com")
			tc.edit(&in)

			_, err := s.users.CreateUser(s.ctx, s.adminActor(), in)

			var verr *service.ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Contains(verr.Fields, tc.field)
		})
	}
}

func (s *ServiceSuite) TestListUsers_FilterAndSort() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "Charlie Brown", "charlie@example.com", models.RoleUser)
	testutil.CreateTestUser(s.T(), s.testDB.DB, "alice Walker", "alice@example.com", models.RoleUser)
	testutil.CreateTestUser(s.T(), s.testDB.DB, "Bob Builder", "bob@store.com", models.RoleStoreOwner)

	owners, err := s.users.ListUsers(s.ctx, s.adminActor(), service.UserFilter{Role: "store_owner"})
	s.Require().NoError(err)
	s.Require().Len(owners, 1)
	s.Equal("Bob Builder", owners[0].Name)

	found, err := s.users.ListUsers(s.ctx, s.adminActor(), service.UserFilter{Search: "STORE.COM"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)

	sorted, err := s.users.ListUsers(s.ctx, s.adminActor(), service.UserFilter{Role: "user", Sort: "name"})
	s.Require().NoError(err)
	s.Require().Len(sorted, 2)
	s.Equal("alice Walker", sorted[0].Name)
	s.Equal("Charlie Brown", sorted[1].Name)

	_, err = s.users.ListUsers(s.ctx, s.adminActor(), service.UserFilter{Sort: "password"})
	var verr *service.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "sort")

	_, err = s.users.ListUsers(s.ctx, s.adminActor(), service.UserFilter{Role: "root"})
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "role")
}

func (s *ServiceSuite) TestListUsers_AdminOnly() {
	_, actor := s.newUser()
	_, err := s.users.ListUsers(s.ctx, actor, service.UserFilter{})
	s.ErrorIs(err, service.ErrForbidden)
}

func (s *ServiceSuite) TestGetUser() {
	user, actor := s.newUser()
	_, other := s.newUser()

	got, err := s.users.GetUser(s.ctx, actor, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, got.Email)
	s.Nil(got.Store)

	_, err = s.users.GetUser(s.ctx, other, user.ID)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.users.GetUser(s.ctx, s.adminActor(), "missing")
	s.ErrorIs(err, service.ErrNotFound)

	store, owner := s.newStore("Owner Detail Store")
	detail, err := s.users.GetUser(s.ctx, s.adminActor(), owner.ID)
	s.Require().NoError(err)
	s.Require().NotNil(detail.Store)
	s.Equal(store.ID, detail.Store.ID)
}

func (s *ServiceSuite) TestUpdateUser_SelfProfile() {
	user, actor := s.newUser()

	updated, err := s.users.UpdateUser(s.ctx, actor, user.ID, service.UserPatch{
		Name:    ptr("Renamed Person"),
		Address: ptr("7 New Road"),
	})
	s.Require().NoError(err)
	s.Equal("Renamed Person", updated.Name)
	s.Equal("7 New Road", updated.Address)
	s.Equal(user.Email, updated.Email)

	_, err = s.users.UpdateUser(s.ctx, actor, user.ID, service.UserPatch{Role: ptr("admin")})
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.users.UpdateUser(s.ctx, actor, user.ID, service.UserPatch{Name: ptr("Al")})
	var verr *service.ValidationError
	s.ErrorAs(err, &verr)

	_, err = s.users.UpdateUser(s.ctx, actor, user.ID, service.UserPatch{Email: ptr(s.admin.Email)})
	s.ErrorIs(err, service.ErrEmailExists)
}

func (s *ServiceSuite) TestUpdateUser_AdminRoleChange() {
	user, _ := s.newUser()

	updated, err := s.users.UpdateUser(s.ctx, s.adminActor(), user.ID, service.UserPatch{Role: ptr("store_owner")})
	s.Require().NoError(err)
	s.Equal(models.RoleStoreOwner, updated.Role)

	_, owner := s.newStore("Demotion Guard")
	_, err = s.users.UpdateUser(s.ctx, s.adminActor(), owner.ID, service.UserPatch{Role: ptr("user")})
	s.ErrorIs(err, service.ErrConflict)
}

func (s *ServiceSuite) TestChangePassword() {
	user, actor := s.newUser()
	const next = "NewSecret#42"

	err := s.users.ChangePassword(s.ctx, actor, user.ID, "Wrong123!", next)
	s.ErrorIs(err, service.ErrInvalidCredentials)

	err = s.users.ChangePassword(s.ctx, actor, user.ID, testutil.DefaultPassword, "weak")
	var verr *service.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "newPassword")

	err = s.users.ChangePassword(s.ctx, s.adminActor(), user.ID, testutil.DefaultPassword, next)
	s.ErrorIs(err, service.ErrForbidden)

	s.Require().NoError(s.users.ChangePassword(s.ctx, actor, user.ID, testutil.DefaultPassword, next))

	_, _, err = s.auth.Login(s.ctx, user.Email, testutil.DefaultPassword)
	s.ErrorIs(err, service.ErrInvalidCredentials)
	_, _, err = s.auth.Login(s.ctx, user.Email, next)
	s.NoError(err)
}

func (s *ServiceSuite) TestDeleteUser_CascadesRatingsAndRecomputes() {
	storeA, _ := s.newStore("Cascade A")
	storeB, _ := s.newStore("Cascade B")
	leaving, leavingActor := s.newUser()
	_, stayingActor := s.newUser()

	s.rate(leavingActor, storeA.ID, 1)
	s.rate(leavingActor, storeB.ID, 1)
	s.rate(stayingActor, storeA.ID, 5)

	s.Require().NoError(s.users.DeleteUser(s.ctx, s.adminActor(), leaving.ID))

	gone, err := s.store.Users().GetByID(s.ctx, leaving.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	a := s.reloadStore(storeA.ID)
	s.EqualValues(1, a.TotalRatings)
	s.InDelta(5.0, a.AverageRating, 1e-9)

	b := s.reloadStore(storeB.ID)
	s.EqualValues(0, b.TotalRatings)
	s.InDelta(0.0, b.AverageRating, 1e-9)
}

func (s *ServiceSuite) TestDeleteUser_Rejections() {
	_, owner := s.newStore("Owned Store")
	user, actor := s.newUser()

	s.ErrorIs(s.users.DeleteUser(s.ctx, s.adminActor(), owner.ID), service.ErrOwnerHasStore)
	s.ErrorIs(s.users.DeleteUser(s.ctx, actor, user.ID), service.ErrForbidden)
	s.ErrorIs(s.users.DeleteUser(s.ctx, s.adminActor(), s.admin.ID), service.ErrForbidden)
	s.ErrorIs(s.users.DeleteUser(s.ctx, s.adminActor(), "missing"), service.ErrNotFound)
}
