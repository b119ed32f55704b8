package warehouse

import (
	"database/sql"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/databricks/databricks-sql-go/auth/oauth/m2m"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

const (
	warehousePort = 443
	userAgent     = "lakegate"
)

// Opener opens a database handle authenticated as cred. A nil cred means the
// service identity.
type Opener interface {
	Open(cred *identity.Credential) (*sql.DB, error)
}

// DatabricksOpener opens SQL warehouse connections with databricks-sql-go.
type DatabricksOpener struct {
	cfg *config.Config
}

// NewDatabricksOpener creates an opener for the warehouse named in cfg.
func NewDatabricksOpener(cfg *config.Config) *DatabricksOpener {
	return &DatabricksOpener{cfg: cfg}
}

// Open builds a connector for cred. User credentials authenticate with the
// access token as-is; the service identity goes through the driver's M2M
// authenticator, which runs its own client-credentials exchange.
func (o *DatabricksOpener) Open(cred *identity.Credential) (*sql.DB, error) {
	host, err := o.cfg.ServerHostname()
	if err != nil {
		return nil, err
	}
	path, err := o.cfg.HTTPPath()
	if err != nil {
		return nil, err
	}

	opts := []dbsql.ConnOption{
		dbsql.WithServerHostname(host),
		dbsql.WithPort(warehousePort),
		dbsql.WithHTTPPath(path),
		dbsql.WithUserAgentEntry(userAgent),
	}
	if cred != nil {
		opts = append(opts, dbsql.WithAccessToken(cred.Token))
	} else {
		if err := o.cfg.RequireService(); err != nil {
			return nil, err
		}
		opts = append(opts, dbsql.WithAuthenticator(m2m.NewAuthenticator(o.cfg.ClientID, o.cfg.ClientSecret, host)))
	}

	connector, err := dbsql.NewConnector(opts...)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}
