package e2e

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

func TestPayerJourney(t *testing.T) {
	s := NewTestSuite(t)

	// register -> login -> me -> refresh -> replay
	status, body := s.Do(http.MethodPost, "/auth/register/payer", "", map[string]string{
		"phone":                 "919876543210",
		"name":                  "Ravi",
		"relationshipToPatient": "son",
	})
	require.Equal(t, http.StatusCreated, status, body)
	userID := userOf(t, body)["id"].(string)
	require.Len(t, s.SMS.Sent, 1)
	assert.Equal(t, "919876543210", s.SMS.Sent[0].To)

	status, body = s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "+919876543210"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, userID, userOf(t, body)["id"])
	access := body["token"].(string)
	refresh := body["refreshToken"].(string)

	status, body = s.Do(http.MethodGet, "/auth/me", access, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "son", body["relationshipToPatient"])
	assert.Equal(t, "Asia/Kolkata", body["timezone"])
	assert.NotContains(t, body, "password")

	status, body = s.Do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, status, body)
	rotated := body["refreshToken"].(string)
	assert.NotEqual(t, refresh, rotated)

	status, body = s.Do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, domain.MsgInvalidRefreshToken, body["error"])

	status, _ = s.Do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": rotated})
	assert.Equal(t, http.StatusOK, status)
}

func TestHospitalAdminJourney(t *testing.T) {
	s := NewTestSuite(t)

	status, body := s.Do(http.MethodPost, "/auth/register/hospital", "", map[string]string{
		"email":        "admin@citycare.in",
		"password":     "correct-horse",
		"hospitalName": "City Care",
		"adminName":    "Dr. Mehta",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "hospital_admin", userOf(t, body)["role"])
	assert.Empty(t, s.SMS.Sent, "hospital admins have no phone to greet")

	status, body = s.Do(http.MethodPost, "/auth/register/hospital", "", map[string]string{
		"email":        "admin@citycare.in",
		"password":     "another-password",
		"hospitalName": "Other",
		"adminName":    "Other",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.MsgEmailTaken, body["error"])

	status, body = s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "admin@citycare.in"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.MsgPasswordRequired, body["error"])

	_, wrong := s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "admin@citycare.in", "password": "nope"})
	_, unknown := s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "nobody@citycare.in", "password": "nope"})
	assert.Equal(t, unknown, wrong, "failures must be indistinguishable")

	status, body = s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "admin@citycare.in", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, status, body)

	status, _ = s.Do(http.MethodGet, "/auth/me", body["token"].(string), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPhoneOTPJourney(t *testing.T) {
	s := NewTestSuite(t)
	s.Verifier.Tokens["otp-assertion"] = &domain.IdentityClaims{
		Subject:        "firebase-uid-1",
		Phone:          "+919876543210",
		SignInProvider: domain.SignInProviderPhone,
	}

	status, body := s.Do(http.MethodPost, "/auth/verify-otp", "", map[string]string{"firebaseIdToken": "otp-assertion"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["needsRegistration"])
	assert.Equal(t, true, body["isNewUser"])
	assert.Equal(t, "+919876543210", body["phone"])
	assert.Zero(t, s.CountUsers())

	status, body = s.Do(http.MethodPost, "/auth/verify-otp", "", map[string]string{"firebaseIdToken": "otp-assertion", "name": "Ravi"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["isNewUser"])
	assert.Equal(t, true, userOf(t, body)["phoneVerified"])
	assert.Equal(t, "firebase-uid-1", userOf(t, body)["externalAuthId"])

	status, body = s.Do(http.MethodPost, "/auth/verify-otp", "", map[string]string{"firebaseIdToken": "otp-assertion"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["isNewUser"])
	assert.EqualValues(t, 1, s.CountUsers())

	status, body = s.Do(http.MethodPost, "/auth/verify-otp", "", map[string]string{"firebaseIdToken": "forged"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, domain.MsgInvalidIdentityToken, body["error"])
}

func TestSocialLoginJourney(t *testing.T) {
	s := NewTestSuite(t)
	s.Verifier.Tokens["google-assertion"] = &domain.IdentityClaims{
		Subject:        "firebase-uid-g",
		Email:          "ravi@gmail.com",
		EmailVerified:  true,
		Name:           "Ravi Kumar",
		SignInProvider: domain.SignInProviderGoogle,
	}

	status, body := s.Do(http.MethodPost, "/auth/social-login", "", map[string]string{
		"firebaseIdToken": "google-assertion",
		"provider":        "apple",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.MsgProviderMismatch, body["error"])

	status, body = s.Do(http.MethodPost, "/auth/social-login", "", map[string]string{
		"firebaseIdToken": "google-assertion",
		"provider":        "google",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["isNewUser"])
	user := userOf(t, body)
	assert.Equal(t, "Ravi Kumar", user["name"])
	assert.Equal(t, "google", user["authProvider"])
	assert.Equal(t, true, user["emailVerified"])

	status, body = s.Do(http.MethodPost, "/auth/social-login", "", map[string]string{
		"firebaseIdToken": "google-assertion",
		"provider":        "google",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["isNewUser"])
	assert.Equal(t, user["id"], userOf(t, body)["id"])
}

func TestRouteAuthorization(t *testing.T) {
	s := NewTestSuite(t)

	status, body := s.Do(http.MethodPost, "/auth/register/payer", "", map[string]string{"phone": "+919876543210", "name": "Ravi"})
	require.Equal(t, http.StatusCreated, status, body)
	payerToken := body["token"].(string)
	payerID := userOf(t, body)["id"].(string)

	status, _ = s.Do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.Do(http.MethodGet, "/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	refreshAsAccess := body["refreshToken"].(string)
	status, _ = s.Do(http.MethodGet, "/auth/me", refreshAsAccess, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "refresh tokens are not access tokens")

	status, _ = s.Do(http.MethodGet, "/admin/policies", payerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	s.PromoteToSuperAdmin(payerID)
	status, body = s.Do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "+919876543210"})
	require.Equal(t, http.StatusOK, status, body)
	adminToken := body["token"].(string)

	status, _ = s.Do(http.MethodGet, "/admin/policies", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.Do(http.MethodPost, "/admin/policies", adminToken, map[string]string{
		"role": "payer", "resource": "/api/v1/admin/policies", "action": "GET",
	})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = s.Do(http.MethodGet, "/admin/policies", payerToken, nil)
	assert.Equal(t, http.StatusOK, status, "granted policies apply immediately")

	status, _ = s.Do(http.MethodDelete, "/admin/policies", adminToken, map[string]string{
		"role": "payer", "resource": "/api/v1/admin/policies", "action": "GET",
	})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = s.Do(http.MethodGet, "/admin/policies", payerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestConcurrentRegistrationOfOnePhone(t *testing.T) {
	s := NewTestSuite(t)

	const n = 8
	statuses := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = s.Do(http.MethodPost, "/auth/register/payer", "", map[string]string{
				"phone": "+919876543210",
				"name":  "Ravi",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, st := range statuses {
		switch st {
		case http.StatusCreated:
			created++
		default:
			assert.Equal(t, http.StatusConflict, st)
		}
	}
	assert.Equal(t, 1, created)
	assert.EqualValues(t, 1, s.CountUsers())
}

func TestConcurrentRefreshOfOneToken(t *testing.T) {
	s := NewTestSuite(t)

	status, body := s.Do(http.MethodPost, "/auth/register/payer", "", map[string]string{"phone": "+919876543210", "name": "Ravi"})
	require.Equal(t, http.StatusCreated, status, body)
	refresh := body["refreshToken"].(string)

	const n = 8
	statuses := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = s.Do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refresh})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, st := range statuses {
		if st == http.StatusOK {
			ok++
			continue
		}
		assert.Equal(t, http.StatusUnauthorized, st)
	}
	assert.Equal(t, 1, ok)
}
