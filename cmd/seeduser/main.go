// cmd/seeduser/main.go: crea o actualiza un operador.
// Uso: go run ./cmd/seeduser -username caisse -nombre "Caisse 1" [-email x@y.z]
// La contrasena se toma de SEED_PASSWORD o del flag -password.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/config"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/model"
	"github.com/garcia-cyber/popcornRDC/internal/repository"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "nombre de usuario")
	nombre := flag.String("nombre", "Administrateur", "nombre visible")
	email := flag.String("email", "", "email (opcional, tambien sirve para el login)")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "contrasena (por defecto SEED_PASSWORD)")
	flag.Parse()

	if strings.TrimSpace(*username) == "" || len(*password) < 8 {
		log.Fatal().Msg("username requerido y contrasena de al menos 8 caracteres")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	hash, err := service.HashPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	u := &model.Usuario{
		Username:     strings.TrimSpace(*username),
		Nombre:       *nombre,
		PasswordHash: hash,
		Activo:       true,
	}
	if *email != "" {
		u.Email = email
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repository.NewUsuarioRepository(db).Upsert(ctx, u); err != nil {
		log.Fatal().Err(err).Msg("upsert error")
	}
	log.Info().Str("username", u.Username).Msg("operador creado/actualizado")
}
