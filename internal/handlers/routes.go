package handlers

import "net/http"

// Routes groups the handlers mounted on the public mux
type Routes struct {
	Tokens     *TokenHandler
	Leaders    *LeaderHandler
	Admin      *AdminHandler
	Middleware *Middleware
}

// Register mounts every route on mux. Token routes are rate limited.
func (rt Routes) Register(mux *http.ServeMux) {
	limit := rt.Middleware.RateLimit

	// Registration links
	mux.HandleFunc("GET /completar-cadastro", limit(rt.Tokens.ShowCompletion))
	mux.HandleFunc("POST /finalizar-cadastro", limit(rt.Tokens.FinalizeCompletion))

	// Leader links
	mux.HandleFunc("GET /validar-token-leadertrack", limit(rt.Leaders.ValidateToken))
	mux.HandleFunc("GET /leadertrack/sessao", rt.Leaders.CurrentSession)
	mux.HandleFunc("POST /leadertrack/sair", rt.Leaders.EndSession)

	// Operator pages
	mux.HandleFunc("GET /{$}", rt.Admin.Index)
	mux.HandleFunc("POST /upload", rt.Admin.UploadRegistrations)
	mux.HandleFunc("POST /upload-leadertrack", rt.Admin.UploadLeaders)
	mux.HandleFunc("GET /listar-tokens", rt.Admin.ListRegistrations)
	mux.HandleFunc("GET /listar-tokens-leadertrack", rt.Admin.ListLeaders)
	mux.HandleFunc("GET /excluir-tokens", rt.Admin.ConfirmClearRegistrations)
	mux.HandleFunc("POST /excluir-tokens", rt.Admin.ClearRegistrations)
	mux.HandleFunc("GET /excluir-tokens-leadertrack", rt.Admin.ConfirmClearLeaders)
	mux.HandleFunc("POST /excluir-tokens-leadertrack", rt.Admin.ClearLeaders)
	mux.HandleFunc("GET /enviar-emails", rt.Admin.SendRegistrationEmails)
	mux.HandleFunc("GET /enviar-emails-leadertrack", rt.Admin.SendLeaderEmails)
}
