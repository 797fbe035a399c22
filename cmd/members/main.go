package main

import (
	accesshandler "cowork/internal/access/handler"
	accessrepo "cowork/internal/access/repository"
	accessservice "cowork/internal/access/service"
	memberhandler "cowork/internal/members/handler"
	memberrepo "cowork/internal/members/repository"
	memberservice "cowork/internal/members/service"
	membervalidator "cowork/internal/members/validator"
	"cowork/pkg/app"
	"cowork/pkg/config"
)

const ServiceName = "members"

func main() {
	cfg := config.Load(ServiceName)

	cfg.SetMongo()

	cfg.Log.Info("Starting Members service")
	memberService, accessService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		memberhandler.NewMemberHandler(memberService, cfg.Log),
		accesshandler.NewAccessHandler(accessService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (memberservice.MemberService, accessservice.AccessService) {
	memberValidator := membervalidator.NewMemberValidator(cfg.Log)
	memberRepo := memberrepo.NewMongoMemberRepository(cfg)

	memberService := memberservice.NewMemberService(memberRepo, memberValidator, cfg)
	accessService := accessservice.NewAccessService(
		accessrepo.NewMongoAccessRepository(cfg),
		memberRepo,
		memberValidator,
		cfg,
	)

	cfg.Log.Info("Members service initialized", "database", cfg.MongoDatabaseName)
	return memberService, accessService
}
