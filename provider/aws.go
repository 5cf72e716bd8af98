package provider

import (
	"regexp"
	"strings"
)

// AWS credentials are stored as a single "ACCESS_KEY_ID:SECRET_ACCESS_KEY"
// pair: a 20-character key id (AKIA for IAM users, ASIA for temporary
// credentials) and a 40-character secret.
var (
	awsAccessKeyIDRe = regexp.MustCompile(`^(AKIA|ASIA)[A-Z0-9]{16}$`)
	awsSecretKeyRe   = regexp.MustCompile(`^[A-Za-z0-9/+=]{40}$`)
)

// AWS validates IAM access key pairs.
type AWS struct {
	base
}

// NewAWS creates the AWS provider.
func NewAWS() *AWS {
	return &AWS{base{name: "aws"}}
}

func (p *AWS) Validate(credential string) error {
	keyID, secret, found := strings.Cut(credential, ":")
	if !found {
		return invalid(p.name, "expected ACCESS_KEY_ID:SECRET_ACCESS_KEY")
	}
	if !awsAccessKeyIDRe.MatchString(keyID) {
		return invalid(p.name, "malformed access key id")
	}
	if !awsSecretKeyRe.MatchString(secret) {
		return invalid(p.name, "malformed secret access key")
	}
	return nil
}

// Metadata reports the key class and the (non-secret) access key id.
func (p *AWS) Metadata(credential string) map[string]string {
	keyID, _, found := strings.Cut(credential, ":")
	if !found || !awsAccessKeyIDRe.MatchString(keyID) {
		return map[string]string{}
	}
	class := "iam-user"
	if strings.HasPrefix(keyID, "ASIA") {
		class = "temporary"
	}
	return map[string]string{
		"key_class":     class,
		"access_key_id": keyID,
	}
}

// AuthHeaders returns an empty map: AWS requests are authenticated with
// SigV4 request signing, which depends on the request itself. Consumers
// must sign with the stored key pair instead of attaching a static header.
func (p *AWS) AuthHeaders(credential string) map[string]string {
	return map[string]string{}
}
