//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/metrics"
	"github.com/lk2023060901/flotilla/pkg/app"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架
		app.ProviderSet,

		// 2. 可观测性
		provideTracer,
		provideSentry,
		providePrometheus,
		metrics.New,

		// 3. 基础设施
		provideEtcd,
		provideStore,
		provideEvents,

		// 4. 编排协作者
		provideNodes,
		provideGateway,
		provideProxy,

		// 5. 编排器
		provideManager,

		// 6. HTTP
		provideWebServer,
		provideRelay,
		provideRegistrar,

		// 7. 组装
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}
