package router

import (
	"context"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/container"
	"github.com/oksasatya/taskboard-api/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/taskboard-api/internal/infrastructure/postgres"
	"github.com/oksasatya/taskboard-api/internal/infrastructure/search"
	handlers "github.com/oksasatya/taskboard-api/internal/interface/http"
	"github.com/oksasatya/taskboard-api/internal/router/modules"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	tpl "github.com/oksasatya/taskboard-api/pkg/mailer/templates"
)

type AuthModuleDeps struct {
	Service     *application.AuthService
	Handler     *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

func buildNotifier() application.Notifier {
	cfg := container.GetConfig()
	brand := tpl.Brand{CompanyName: cfg.CompanyName, AppURL: cfg.AppURL, SupportURL: cfg.SupportURL}

	// a nil *RabbitPublisher must not end up inside the interface
	var pub notify.JobPublisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	return notify.NewEmailNotifier(container.GetSender(), pub, brand, container.GetLogger())
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	users := pginfra.NewUserRepository(container.GetPGPool())

	service := application.NewAuthService(
		users,
		container.GetJWT(),
		buildNotifier(),
		container.GetLogger(),
		cfg.ResetTokenTTL,
	)

	return AuthModuleDeps{
		Service:     service,
		Handler:     handlers.NewAuthHandler(service, container.GetLogger()),
		UserHandler: handlers.NewUserHandler(service, container.GetLogger()),
	}
}

type TaskModuleDeps struct {
	Service *application.TaskService
	Handler *handlers.TaskHandler
}

func buildTaskDeps() TaskModuleDeps {
	tasks := pginfra.NewTaskRepository(container.GetPGPool())

	var index application.TaskIndex
	if es := container.GetES(); es != nil {
		index = search.NewTaskIndex(es, container.GetConfig().ESTasksIndex)
	}

	service := application.NewTaskService(tasks, index, container.GetLogger())
	return TaskModuleDeps{
		Service: service,
		Handler: handlers.NewTaskHandler(service, container.GetLogger()),
	}
}

func buildHealth() *modules.HealthModule {
	required := map[string]modules.Check{}
	optional := map[string]modules.Check{}
	if pool := container.GetPGPool(); pool != nil {
		required["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		optional["redis"] = func(ctx context.Context) error { return helpers.PingRedis(ctx, rdb) }
	}
	if pub := container.GetRabbitPub(); pub != nil {
		optional["rabbitmq"] = pub.Ping
	}
	return modules.NewHealthModule(required, optional)
}

// InitModules builds every module from the container singletons and adds
// them to the registry. Call once during startup after the container is set.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	jwt := container.GetJWT()

	authDeps := buildAuthDeps()
	taskDeps := buildTaskDeps()

	r.Add(
		buildHealth(),
		modules.NewAuthModule(authDeps.Handler, authDeps.UserHandler, jwt, rdb, cfg.AuthRateLimit),
		modules.NewTaskModule(taskDeps.Handler, jwt, rdb, cfg.TaskRateLimit),
	)
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
