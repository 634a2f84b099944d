package model

import "time"

// Shop represents a merchant store in the `shops` table.  The offline
// Admin API access token is never stored in clear text; AccessTokenSealed
// holds the encrypted form produced by utils.Sealer.
//
// Fields:
//  ID                – primary key identifier.
//  Domain            – unique myshopify.com domain.
//  AccessTokenSealed – encrypted offline access token.
//  Scopes            – comma separated granted scopes.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type Shop struct {
	ID                uint64    // shops.id
	Domain            string    // shops.domain
	AccessTokenSealed string    // shops.access_token_sealed
	Scopes            string    // shops.scopes
	CreatedAt         time.Time // shops.created_at
	UpdatedAt         time.Time // shops.updated_at
}
