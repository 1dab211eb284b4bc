package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"engagement-controlplane/internal/config"
	"engagement-controlplane/pkg/db"
	"engagement-controlplane/pkg/logger"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/member"
	"engagement-controlplane/services/profile"
)

var (
	outPath     = flag.String("out", "catalog.yaml", "path to write the default catalog")
	seedMembers = flag.Bool("members", false, "also seed demo members into the database")
)

func main() {
	flag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Invoke(run),
		fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
			return fxevent.NopLogger
		}),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

func run(lc fx.Lifecycle, gdb *gorm.DB, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := writeCatalog(*outPath); err != nil {
				return err
			}
			if *seedMembers {
				if err := seedDemoMembers(gdb); err != nil {
					return err
				}
			}
			return shutdowner.Shutdown()
		},
	})
}

func writeCatalog(path string) error {
	c, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("build default catalog: %w", err)
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	zap.L().Info("default catalog written", zap.String("path", path))
	return nil
}

func seedDemoMembers(gdb *gorm.DB) error {
	models := append(profile.Models(), &member.Member{})
	if err := gdb.AutoMigrate(models...); err != nil {
		return err
	}

	demo := []struct {
		Name  string
		Email string
		Type  member.MemberType
	}{
		{"Test Member", "test.member@example.com", member.Standard},
		{"Ally Member", "ally.member@example.com", member.Ally},
		{"Staff Member", "staff.member@example.com", member.Staff},
	}

	now := time.Now().UTC()
	for _, d := range demo {
		m := &member.Member{
			ID:        slug.Make(d.Name),
			CreatedAt: now,
			UpdatedAt: now,
			Name:      d.Name,
			Email:     d.Email,
			Type:      d.Type,
		}

		err := gdb.Where(&member.Member{Email: m.Email}).
			FirstOrCreate(m).Error
		if err != nil {
			return err
		}
		zap.L().Info("member seeded", zap.String("member_id", m.ID))
	}
	return nil
}
