package worker

import (
	"crm-web/internal/config"
	"crm-web/internal/crmapi"
	"crm-web/internal/repository"
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	submitHandler := NewSubmitTaskHandler(
		repository.NewImportSessionRepository(db),
		crmapi.New(cfg),
		redis,
		utils.GetLogger(),
	)

	mux.HandleFunc(service.TaskClientImportSubmit, submitHandler.Handle)
}
