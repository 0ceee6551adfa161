package api_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grinplace/pkg/api"
	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

func (ts *testServer) createRole(name string, perms ...string) *rbac.Role {
	ts.t.Helper()
	if perms == nil {
		perms = []string{}
	}
	rec := ts.do(http.MethodPost, "/api/roles", ts.adminToken, map[string]interface{}{
		"name": name, "permissions": perms,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*rbac.Role](ts.t, rec)
}

func (ts *testServer) createUser(email, roleID string) *users.User {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/users", ts.adminToken, map[string]interface{}{
		"email": email, "password": "secret1", "name": "Member", "roleId": roleID,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*users.User](ts.t, rec)
}

func (ts *testServer) upload(path, token, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(ts.t, err)
	_, err = part.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func validBusiness(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":     name,
		"address":  map[string]string{"street": "Main", "city": "Lima"},
		"contact":  map[string]string{"phone": "+51 999-111"},
		"services": []string{"phone_sales"},
	}
}

func TestScenario_PermissionGatedRoutes(t *testing.T) {
	ts := newTestServer(t)
	ok := func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteMessage(w, "ok")
	}
	ts.server.Handle("/sales/manage", ok, http.MethodPost, rbac.PermManageSales)
	ts.server.Handle("/sales/execute", ok, http.MethodPost, rbac.PermExecuteSales)
	ts.server.Handle("/sales/both", ok, http.MethodPost, rbac.PermExecuteSales, rbac.PermManageSales)

	staff := ts.createRole("staff", "execute_sales")
	ts.createUser("clerk@example.com", staff.ID)
	token := ts.login("clerk@example.com", "secret1")

	rec := ts.do(http.MethodPost, "/api/sales/manage", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/sales/execute", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/sales/both", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "every required permission must be held")

	rec = ts.do(http.MethodGet, "/api/roles", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	t.Run("granting a permission takes effect on the next request", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/api/roles/"+staff.ID, ts.adminToken, map[string]interface{}{
			"permissions": []string{"execute_sales", "manage_sales"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = ts.do(http.MethodPost, "/api/sales/both", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("inactive role keeps its permissions", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/api/roles/"+staff.ID, ts.adminToken, map[string]interface{}{
			"active": false,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.False(t, decode[*rbac.Role](t, rec).Active)

		rec = ts.do(http.MethodPost, "/api/sales/execute", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestScenario_OwnerRoleCannotBeCreated(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"owner", "Owner", "OWNER", " oWnEr "} {
		rec := ts.do(http.MethodPost, "/api/roles", ts.adminToken, map[string]interface{}{
			"name": name, "permissions": []string{"manage_users"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	roles, err := ts.db.Roles().List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, ts.owner.ID, roles[0].ID)
}

func TestScenario_LastAdminDeletion(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	rec := ts.do(http.MethodDelete, "/api/users/"+ts.admin.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := ts.db.Users().Get(ctx, ts.admin.ID, users.FindOptions{})
	require.NoError(t, err, "last admin must survive")

	second := ts.createUser("second@example.com", ts.owner.ID)

	rec = ts.do(http.MethodDelete, "/api/users/"+ts.admin.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err = ts.db.Users().Get(ctx, ts.admin.ID, users.FindOptions{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	t.Run("deleted account loses access", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/auth/profile", ts.adminToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("remaining admin is now protected", func(t *testing.T) {
		token := ts.login(second.Email, "secret1")
		rec := ts.do(http.MethodDelete, "/api/users/"+second.ID, token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestScenario_LastActiveAdmin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	second := ts.createUser("second@example.com", ts.owner.ID)
	rec := ts.do(http.MethodPut, "/api/users/"+second.ID, ts.adminToken, map[string]interface{}{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPut, "/api/users/"+ts.admin.ID, ts.adminToken, map[string]interface{}{"active": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/users/"+ts.admin.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	user, err := ts.db.Users().Get(ctx, ts.admin.ID, users.FindOptions{})
	require.NoError(t, err)
	assert.True(t, user.Active)

	rec = ts.do(http.MethodGet, "/api/auth/profile", ts.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Login(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ROOT@example.com", "password": adminPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[users.LoginResult](t, rec)
	assert.Equal(t, ts.admin.ID, result.User.ID)
	require.NotNil(t, result.User.Role)
	assert.Equal(t, rbac.OwnerRoleName, result.User.Role.Name)
	assert.NotContains(t, rec.Body.String(), "password")

	failures := []map[string]string{
		{"email": adminEmail, "password": "wrong1"},
		{"email": "ghost@example.com", "password": adminPassword},
	}
	for _, body := range failures {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", errorMessage(t, rec))
	}

	rec = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_DisabledAccount(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.createRole("staff", "execute_sales")
	clerk := ts.createUser("clerk@example.com", staff.ID)
	token := ts.login("clerk@example.com", "secret1")

	rec := ts.do(http.MethodPut, "/api/users/"+clerk.ID, ts.adminToken, map[string]interface{}{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account is disabled", errorMessage(t, rec))

	rec = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "clerk@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorMessage(t, rec))
}

func TestAuth_RegisterAndProfile(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.createRole("staff", "execute_sales")

	rec := ts.do(http.MethodPost, "/api/auth/register", ts.adminToken, map[string]interface{}{
		"email": "new@example.com", "password": "secret1", "name": "Newbie", "roleId": staff.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"new@example.com"`)

	token := ts.login("new@example.com", "secret1")

	rec = ts.do(http.MethodPost, "/api/auth/register", token, map[string]interface{}{
		"email": "other@example.com", "password": "secret1", "name": "Other", "roleId": staff.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[users.Summary](t, rec)
	assert.Equal(t, "Newbie", profile.Name)
	require.NotNil(t, profile.Role)
	assert.Equal(t, "staff", profile.Role.Name)

	rec = ts.do(http.MethodPut, "/api/auth/profile", token, map[string]interface{}{"name": "Renamed", "password": "secret2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Renamed", decode[users.Summary](t, rec).Name)
	ts.login("new@example.com", "secret2")

	rec = ts.do(http.MethodPut, "/api/auth/profile", token, map[string]interface{}{"email": adminEmail})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, "/api/auth/profile", token, map[string]interface{}{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoles_CRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/roles/permissions", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perms := decode[[]string](t, rec)
	assert.Len(t, perms, len(rbac.AllPermissions()))
	assert.Equal(t, "owner", perms[0])

	rec = ts.do(http.MethodGet, "/api/roles/permissions/list", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, perms, decode[[]string](t, rec))

	admin := ts.createRole("admin", "manage_users")

	t.Run("name uniqueness ignores case", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/roles", ts.adminToken, map[string]interface{}{
			"name": "Admin", "permissions": []string{},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown permission", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/roles", ts.adminToken, map[string]interface{}{
			"name": "weird", "permissions": []string{"fly"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list hides owner", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/roles", ts.adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		roles := decode[[]*rbac.Role](t, rec)
		require.Len(t, roles, 1)
		assert.Equal(t, admin.ID, roles[0].ID)
	})

	t.Run("owner role is not exposed or mutable", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/roles/"+ts.owner.ID, ts.adminToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(http.MethodPut, "/api/roles/"+ts.owner.ID, ts.adminToken, map[string]interface{}{"description": "x"})
		assert.NotEqual(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodDelete, "/api/roles/"+ts.owner.ID, ts.adminToken, nil)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	t.Run("get and update", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/roles/"+admin.ID, ts.adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodPut, "/api/roles/"+admin.ID, ts.adminToken, map[string]interface{}{"description": "Back office"})
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decode[*rbac.Role](t, rec)
		assert.Equal(t, "Back office", updated.Description)
		assert.True(t, updated.Permissions.Has(rbac.PermManageUsers))

		rec = ts.do(http.MethodGet, "/api/roles/missing", ts.adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete blocked while in use", func(t *testing.T) {
		member := ts.createUser("member@example.com", admin.ID)

		rec := ts.do(http.MethodDelete, "/api/roles/"+admin.ID, ts.adminToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = ts.do(http.MethodDelete, "/api/users/"+member.ID, ts.adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodDelete, "/api/roles/"+admin.ID, ts.adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUsers_Administration(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.createRole("staff", "execute_sales")
	clerk := ts.createUser("clerk@example.com", staff.ID)

	rec := ts.do(http.MethodGet, "/api/users", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*users.User](t, rec), 2)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = ts.do(http.MethodGet, "/api/users?role=STAFF", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*users.User](t, rec), 1)

	rec = ts.do(http.MethodGet, "/api/users/role/staff", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]*users.User](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, clerk.ID, list[0].ID)
	require.NotNil(t, list[0].Role)

	rec = ts.do(http.MethodGet, "/api/users/"+clerk.ID, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clerk@example.com", decode[*users.User](t, rec).Email)

	rec = ts.do(http.MethodGet, "/api/users/unknown", ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/users", ts.adminToken, map[string]interface{}{
		"email": "CLERK@example.com", "password": "secret1", "name": "Dup", "roleId": staff.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/users", ts.adminToken, map[string]interface{}{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode[httputil.ErrorResponse](t, rec).Details
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "name")

	rec = ts.do(http.MethodPut, "/api/users/"+clerk.ID, ts.adminToken, map[string]interface{}{"name": "Senior Clerk"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Senior Clerk", decode[*users.User](t, rec).Name)

	t.Run("staff cannot administer users", func(t *testing.T) {
		token := ts.login("clerk@example.com", "secret1")
		rec := ts.do(http.MethodGet, "/api/users", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = ts.do(http.MethodGet, "/api/users/"+ts.admin.ID, token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestUsers_SelfService(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.createRole("staff", "execute_sales")
	ts.createUser("clerk@example.com", staff.ID)
	token := ts.login("clerk@example.com", "secret1")

	rec := ts.do(http.MethodGet, "/api/users/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, users.DefaultSettings(), decode[users.Settings](t, rec))

	rec = ts.do(http.MethodPost, "/api/users/settings", token, map[string]interface{}{
		"theme": "dark", "interfaceSettings": map[string]string{"sidebar": "collapsed"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settings := decode[users.Settings](t, rec)
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "es", settings.Language)
	assert.Equal(t, "collapsed", settings.Interface["sidebar"])

	rec = ts.do(http.MethodPost, "/api/users/settings", token, map[string]interface{}{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/users/profile", token, map[string]interface{}{"name": "Clerk Kent"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Clerk Kent", decode[*users.User](t, rec).Name)

	t.Run("role cannot be changed through the profile", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/api/users/profile", token, map[string]interface{}{"roleId": ts.owner.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, staff.ID, decode[*users.User](t, rec).RoleID)
	})
}

func TestUsers_UploadPhoto(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload("/api/users/upload-photo", ts.adminToken, "photo", "me.png", "image/png", []byte("first"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[*users.User](t, rec).Photo
	require.True(t, strings.HasPrefix(first, uploadsURL+"/profile/"), first)
	assert.True(t, strings.HasSuffix(first, ".png"))

	served := ts.do(http.MethodGet, strings.TrimPrefix(first, "http://localhost"), "", nil)
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "first", served.Body.String())

	rec = ts.upload("/api/users/upload-photo", ts.adminToken, "photo", "me.jpg", "image/jpeg", []byte("second"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[*users.User](t, rec).Photo
	assert.NotEqual(t, first, second)

	served = ts.do(http.MethodGet, strings.TrimPrefix(first, "http://localhost"), "", nil)
	assert.Equal(t, http.StatusNotFound, served.Code, "previous photo is removed")

	t.Run("non-image rejected", func(t *testing.T) {
		rec := ts.upload("/api/users/upload-photo", ts.adminToken, "photo", "notes.txt", "text/plain", []byte("hi"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong field", func(t *testing.T) {
		rec := ts.upload("/api/users/upload-photo", ts.adminToken, "avatar", "me.png", "image/png", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		big := newTestServer(t, func(d *api.Dependencies) { d.Options.MaxUploadBytes = 512 })
		rec := big.upload("/api/users/upload-photo", big.adminToken, "photo", "big.png", "image/png", bytes.Repeat([]byte("x"), 4096))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBusinesses_Tenancy(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/businesses", ts.adminToken, validBusiness("Phone Shop"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shop := decode[*businesses.Business](t, rec)
	assert.Equal(t, ts.admin.ID, shop.OwnerID)

	rec = ts.do(http.MethodPost, "/api/businesses", ts.adminToken, validBusiness("Repair Corner"))
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[*businesses.Business](t, rec)

	staff := ts.createRole("staff", "execute_sales")
	rec = ts.do(http.MethodPost, "/api/users", ts.adminToken, map[string]interface{}{
		"email": "clerk@example.com", "password": "secret1", "name": "Clerk",
		"roleId": staff.ID, "businessId": shop.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := ts.login("clerk@example.com", "secret1")

	rec = ts.do(http.MethodGet, "/api/businesses", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*businesses.Business](t, rec), 2)

	rec = ts.do(http.MethodGet, "/api/businesses", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[[]*businesses.Business](t, rec)
	require.Len(t, own, 1)
	assert.Equal(t, shop.ID, own[0].ID)

	rec = ts.do(http.MethodGet, "/api/businesses/"+shop.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/businesses/"+other.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/api/businesses/"+shop.ID, token, map[string]interface{}{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBusinesses_CRUD(t *testing.T) {
	ts := newTestServer(t)

	invalid := validBusiness("")
	invalid["contact"] = map[string]string{"phone": "call me"}
	rec := ts.do(http.MethodPost, "/api/businesses", ts.adminToken, invalid)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[httputil.ErrorResponse](t, rec).Details, 2)

	rec = ts.do(http.MethodPost, "/api/businesses", ts.adminToken, validBusiness("Phone Shop"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shop := decode[*businesses.Business](t, rec)

	rec = ts.do(http.MethodPut, "/api/businesses/"+shop.ID, ts.adminToken, map[string]interface{}{
		"schedule": map[string]interface{}{"monday": map[string]string{"open": "09:00", "close": "18:00"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[*businesses.Business](t, rec)
	assert.Equal(t, "09:00", updated.Schedule.Monday.Open)
	assert.Equal(t, "Phone Shop", updated.Name)

	rec = ts.do(http.MethodPut, "/api/businesses/"+shop.ID, ts.adminToken, map[string]interface{}{
		"schedule": map[string]interface{}{"monday": map[string]string{"open": "18:00", "close": "09:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.upload("/api/businesses/"+shop.ID+"/logo", ts.adminToken, "logo", "logo.svg", "image/svg+xml", []byte("<svg/>"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logo := decode[*businesses.Business](t, rec).Logo
	assert.True(t, strings.HasPrefix(logo, uploadsURL+"/logos/"), logo)

	rec = ts.do(http.MethodDelete, "/api/businesses/"+shop.ID, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/businesses/"+shop.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	served := ts.do(http.MethodGet, strings.TrimPrefix(logo, "http://localhost"), "", nil)
	assert.Equal(t, http.StatusNotFound, served.Code, "logo is removed with the business")
}
