// Package di provides dependency injection for repositories.
package di

import (
	"github.com/aristath/portfoliobot/internal/clientdata"
	"github.com/aristath/portfoliobot/internal/modules/accounts"
	"github.com/aristath/portfoliobot/internal/modules/orders"
	"github.com/aristath/portfoliobot/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	conn := container.PortfolioDB.Conn()

	container.AccountRepo = accounts.NewRepository(conn, log)
	container.LotRepo = portfolio.NewLotRepository(conn, log)
	container.OrderRepo = orders.NewOrderRepository(conn, log)

	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Info().Msg("Repositories initialized")

	return nil
}
