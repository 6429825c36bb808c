package handlers

import (
	"net/http"

	"github.com/abrezinsky/pitchvote/internal/auth"
)

const adminHome = "/admin"

func loginPage(errMsg string) PageData {
	return PageData{Title: "Admin Login", Error: errMsg}
}

// handleLoginPage shows the password form, or skips it for a live session
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Auth.GetSessionFromRequest(r) {
		http.Redirect(w, r, adminHome, http.StatusFound)
		return
	}
	h.render(w, h.templates.AdminLogin, "login.html", loginPage(""))
}

// handleLogin checks the submitted password and starts an admin session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.respondError(w, r, BadRequest("Invalid login form"))
		return
	}

	token, ok := h.Auth.Login(r.PostFormValue("password"))
	if !ok {
		h.Log.Warn("Admin login rejected", "remote_addr", r.RemoteAddr)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		h.render(w, h.templates.AdminLogin, "login.html", loginPage("Invalid password"))
		return
	}

	auth.SetSessionCookie(w, token)
	h.Log.Info("Admin session started", "remote_addr", r.RemoteAddr, "sessions", h.Auth.ActiveSessions())
	http.Redirect(w, r, adminHome, http.StatusFound)
}

// handleLogout ends the caller's session, if any, and returns to the login
// page
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.SessionToken(r); ok {
		h.Auth.Logout(token)
		h.Log.Info("Admin session ended", "remote_addr", r.RemoteAddr)
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}
