package domain

const ProviderGoogle = "google"

// ExternalIdentity is what a federated provider vouches for after its
// assertion has been verified.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
