package handlers

const (
	LeaderSessionCookieName = "leader_session"

	// CSRF scope for the completion form
	csrfScopeCompletion = "completar-cadastro"

	// multipart field carrying spreadsheet uploads
	uploadField = "arquivo"

	MsgTokenMissing        = "Token não informado."
	MsgTokenNotFound       = "Token inválido."
	MsgTokenExpired        = "Token expirado."
	MsgTokenUsed           = "Este link já foi utilizado."
	MsgUnresolvable        = "Não foi possível identificar o formulário de destino."
	MsgInvalidForm         = "Formulário inválido ou expirado. Recarregue a página."
	MsgInvalidFormData     = "Dados do formulário inválidos."
	MsgInternalServerError = "Erro interno do servidor."
	MsgTooManyRequests     = "Muitas requisições. Tente novamente em instantes."
	MsgUnauthorized        = "Sessão inválida ou expirada."
	MsgInvalidPassword     = "Informe uma senha de até 72 bytes (letras acentuadas ocupam 2 bytes cada)."
)
