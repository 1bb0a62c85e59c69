package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/infra/postgres"
)

type AccountRepository struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

func NewAccountRepository(readPool *pgxpool.Pool, writePool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{readPool: readPool, writePool: writePool}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, account entities.Account) error {
	query := `
		INSERT INTO
			accounts (id, email, secret_hash, name, last_name, created_at)
		VALUES
			($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`

	_, err := r.writePool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.SecretHash,
		postgres.NewNullString(&account.Name),
		postgres.NewNullString(&account.LastName),
		postgres.NewNullTime(&account.CreatedAt),
	)
	if postgres.IsUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("AccountRepository.CreateAccount - failed to insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (entities.Account, bool, error) {
	query := `
		SELECT
			id,
			email,
			secret_hash,
			name,
			last_name,
			created_at
		FROM
			accounts
		WHERE
			email = $1
	`

	var (
		account  entities.Account
		name     pgtype.Text
		lastName pgtype.Text
	)

	err := r.readPool.QueryRow(ctx, query, email).Scan(&account.ID, &account.Email, &account.SecretHash, &name, &lastName, &account.CreatedAt)
	if postgres.IsNoRows(err) {
		return entities.Account{}, false, nil
	}
	if err != nil {
		return entities.Account{}, false, fmt.Errorf("AccountRepository.FindAccountByEmail - failed to query account: %w", err)
	}

	account.Name = postgres.TextOrEmpty(name)
	account.LastName = postgres.TextOrEmpty(lastName)
	account.CreatedAt = account.CreatedAt.UTC()
	return account, true, nil
}
