package auth_test

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testImageName = "congregation-auth-test:latest"

	testSecret   = "e2e-signing-secret-0123456789abcdef"
	testPassword = "Corr3ct!horse"
)

// relaxedLimits keeps the credential limiter out of the way of tests that
// make many rapid requests.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// TestMain builds the image once for the whole package.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building auth service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up auth service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

type authContainer struct {
	testcontainers.Container
	BaseURL string
}

type containerOption func(*testcontainers.ContainerRequest)

func withEnv(env map[string]string) containerOption {
	return func(req *testcontainers.ContainerRequest) { maps.Copy(req.Env, env) }
}

func withNetwork(name string) containerOption {
	return func(req *testcontainers.ContainerRequest) { req.Networks = append(req.Networks, name) }
}

// setupAuthContainer starts the service with relaxed rate limits unless an
// option overrides them.
func setupAuthContainer(t *testing.T, opts ...containerOption) *authContainer {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"ENV":             "prod",
			"AUTH_JWT_SECRET": testSecret,
			"AUTH_ISSUER":     "congregation-auth",
			"LOG_LEVEL":       "debug",
			"LOG_FORMAT":      "json",
			"FRONTEND_URL":    "https://app.example.com",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}
	maps.Copy(req.Env, relaxedLimits)
	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return &authContainer{Container: container, BaseURL: fmt.Sprintf("http://%s:%s", host, port.Port())}
}

func (c *authContainer) client() *authsdk.SDKClient {
	return authsdk.NewSDKClient(c.BaseURL)
}

var resetLinkPattern = regexp.MustCompile(`reset-password\?token=([A-Za-z0-9_.\-]+)`)

// resetToken scrapes the most recent reset link from the log mail driver.
func (c *authContainer) resetToken(t *testing.T) string {
	t.Helper()

	var token string
	require.Eventually(t, func() bool {
		logs, err := c.Logs(context.Background())
		if err != nil {
			return false
		}
		defer logs.Close()
		raw, err := io.ReadAll(logs)
		if err != nil {
			return false
		}
		matches := resetLinkPattern.FindAllSubmatch(raw, -1)
		if len(matches) == 0 {
			return false
		}
		token = string(matches[len(matches)-1][1])
		return true
	}, 10*time.Second, 200*time.Millisecond)
	return token
}

func register(t *testing.T, client *authsdk.SDKClient, email string) *authsdk.Session {
	t.Helper()
	session, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:    email,
		Password: testPassword,
		Name:     "E2E Member",
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken())
	require.NotEmpty(t, session.RefreshToken())
	return session
}

func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
