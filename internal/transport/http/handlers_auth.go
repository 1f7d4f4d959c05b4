package httptransport

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

// handleLogin verifies operator credentials against the accounts collection
// and issues a bearer token. Credential storage is bcrypt-only; the
// plaintext password never leaves this handler.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	raw, err := h.store.Get(r.Context(), domain.Accounts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load accounts failed", "error", err.Error())
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "login failed", err))
		return
	}
	accounts, err := domain.DecodeRecords[domain.Account](raw)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "decode accounts failed", "error", err.Error())
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "login failed", err))
		return
	}

	var account *domain.Account
	for i := range accounts {
		if accounts[i].Username == req.Username {
			account = &accounts[i]
			break
		}
	}
	if account == nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		h.logger.WarnContext(r.Context(), "failed login attempt", "username", req.Username)
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password"))
		return
	}

	token, err := h.tokens.GenerateAccessToken(account.ID, account.Username, account.Role, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "token generation failed", "error", err.Error())
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "login failed", err))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User: loginUser{
			ID:       account.ID,
			Username: account.Username,
			Role:     account.Role,
		},
	})
}
