package entities

import "time"

// Account é a conta local do provedor de identidade.
type Account struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SecretHash string    `json:"-"`
	Name       string    `json:"name"`
	LastName   string    `json:"last_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName é o nome informado no cadastro.
type DisplayName struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

func (d DisplayName) String() string {
	if d.LastName == "" {
		return d.Name
	}
	return d.Name + " " + d.LastName
}

// Session is what the identity provider hands back after sign-in or sign-up.
type Session struct {
	Token    string    `json:"token"`
	UID      string    `json:"uid"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	LastName string    `json:"last_name"`
	IssuedAt time.Time `json:"issued_at"`
}

// Record retorna o registro parcial derivado da sessão (somente nome e email).
func (s Session) Record() Record {
	fields := Fields{}
	if s.Name != "" {
		fields[FieldName] = s.Name
	}
	if s.LastName != "" {
		fields[FieldLastName] = s.LastName
	}
	if s.Email != "" {
		fields[FieldEmail] = s.Email
	}

	return Record{
		Identity:   s.UID,
		Collection: CollectionUsers,
		Fields:     fields,
	}
}
