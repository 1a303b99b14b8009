package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-clinica/pkg/config"
)

func TestBuildPoolConfig_TomaTamanoDeConfiguracion(t *testing.T) {
	pc, err := buildPoolConfig(config.DBConfig{
		Host: "db.clinica.local", Port: 5432, User: "app", DBName: "clinica", SSLMode: "disable",
		MaxConns: 8, MinConns: 1, MaxConnLifetime: 15 * time.Minute,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 8, pc.MaxConns)
	assert.EqualValues(t, 1, pc.MinConns)
	assert.Equal(t, 15*time.Minute, pc.MaxConnLifetime)
	assert.NotNil(t, pc.AfterConnect)
	// sin ForceIPv4 el host queda tal cual, sin consultas DNS
	assert.Equal(t, "db.clinica.local", pc.ConnConfig.Host)
}

func TestBuildPoolConfig_DSNInvalido(t *testing.T) {
	_, err := buildPoolConfig(config.DBConfig{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestWithIPv4Host_IPLiteralSeConserva(t *testing.T) {
	assert.Equal(t, "postgres://app@10.1.2.3:6432/clinica", withIPv4Host("postgres://app@10.1.2.3:6432/clinica", ""))
	assert.Equal(t, "postgres://app@[::1]:5432/clinica", withIPv4Host("postgres://app@[::1]:5432/clinica", ""))
}
