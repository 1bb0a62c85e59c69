package identity

import "florencia/src/domain"

const (
	TitleSignUpFailed = "Error"
	TitleSignInFailed = "Error de acceso"

	SignUpFallback = "Hubo un problema al registrar el usuario."
	SignInFallback = "Credenciales inválidas. Intente nuevamente."
)

var signUpMessages = map[domain.IdentityErrorCode]string{
	domain.CodeEmailInUse:     "El correo electrónico ya está en uso.",
	domain.CodeInvalidEmail:   "El formato del correo electrónico no es válido.",
	domain.CodeWeakSecret:     "La contraseña es demasiado débil.",
	domain.CodeNetworkFailure: "Error de conexión, por favor intenta más tarde.",
}

var signInMessages = map[domain.IdentityErrorCode]string{
	domain.CodeInvalidEmail:   "El formato del correo electrónico no es válido.",
	domain.CodeWrongSecret:    "La contraseña es incorrecta.",
	domain.CodeAccountMissing: "No se encontró un usuario con este correo.",
	domain.CodeNetworkFailure: "Error de conexión, por favor intenta más tarde.",
}

// SignUpMessage traduz o código do provedor; códigos desconhecidos recebem a mensagem genérica.
func SignUpMessage(code domain.IdentityErrorCode) string {
	if message, ok := signUpMessages[code]; ok {
		return message
	}
	return SignUpFallback
}

func SignInMessage(code domain.IdentityErrorCode) string {
	if message, ok := signInMessages[code]; ok {
		return message
	}
	return SignInFallback
}

// AuthError é a falha do fluxo de autenticação já traduzida para o usuário.
type AuthError struct {
	Notice domain.Notice
	Err    error
}

func (e *AuthError) Error() string {
	return e.Notice.Message + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
