package cmd

import (
	"net/http"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"storeclip/src/integrations/backend"
	"storeclip/src/storage/database"
	"storeclip/src/storage/minioctrl"
	"storeclip/src/storage/postgres/generationctrl"
	"storeclip/src/videogen"
)

func newBackendClient() *backend.Client {
	return backend.NewClient(
		viper.GetString("backend.url"),
		&http.Client{Timeout: viper.GetDuration("backend.timeout")},
		backend.WithToken(viper.GetString("backend.token")),
	)
}

func newMinioService() (*minioctrl.MinioService, error) {
	return minioctrl.NewMinioService(minioctrl.Config{
		Endpoint:        viper.GetString("minio.endpoint"),
		AccessKeyID:     viper.GetString("minio.access_key"),
		SecretAccessKey: viper.GetString("minio.secret_key"),
		UseSSL:          viper.GetBool("minio.use_ssl"),
		Bucket:          viper.GetString("minio.bucket"),
		PublicURL:       viper.GetString("minio.domain"),
	})
}

func openLedger() (*gorm.DB, *generationctrl.GenerationService, error) {
	db, err := database.Open(database.Config{
		Type:     viper.GetString("database.type"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetString("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		Name:     viper.GetString("database.name"),
	})
	if err != nil {
		return nil, nil, err
	}

	gens, err := generationctrl.NewGenerationService(db)
	if err != nil {
		return nil, nil, err
	}
	if err := gens.AutoMigrate(); err != nil {
		return nil, nil, err
	}
	return db, gens, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func pollOptionsFromConfig() videogen.PollOptions {
	return videogen.PollOptions{
		Interval:    viper.GetDuration("poll.interval"),
		MaxAttempts: viper.GetInt("poll.max_attempts"),
	}
}
