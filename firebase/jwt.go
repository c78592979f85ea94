package firebase

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const CertsAPIEndpoint = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// JWTVerifier checks Firebase ID tokens offline against Google's published
// signing certificates. Tokens that expired less than Interval ago are still
// accepted.
type JWTVerifier struct {
	ProjectID     string
	Interval      time.Duration
	CertsEndpoint string
	Client        *http.Client
}

func NewJWTVerifier(projectID string, interval time.Duration) *JWTVerifier {
	return &JWTVerifier{
		ProjectID:     projectID,
		Interval:      interval,
		CertsEndpoint: CertsAPIEndpoint,
		Client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	parsed, err := jwt.Parse(idToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		cert, err := v.certificateFromToken(ctx, t)
		if err != nil {
			return nil, err
		}
		return readPublicKey(cert)
	})

	if err != nil {
		var ve *jwt.ValidationError
		if !errors.As(err, &ve) || ve.Errors != jwt.ValidationErrorExpired || parsed == nil {
			return "", fmt.Errorf("verify: %v: %w", err, ErrInvalidToken)
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok || !withinInterval(claims, v.Interval) {
			return "", fmt.Errorf("verify: token expired: %w", ErrInvalidToken)
		}
	}

	uid, err := verifyPayload(parsed, v.ProjectID)
	if err != nil {
		return "", fmt.Errorf("verify: %v: %w", err, ErrInvalidToken)
	}
	return uid, nil
}

func withinInterval(claims jwt.MapClaims, interval time.Duration) bool {
	exp, ok := numericClaim(claims, "exp")
	if !ok {
		return false
	}
	return time.Now().Add(-interval).Before(time.Unix(exp, 0))
}

func numericClaim(claims jwt.MapClaims, name string) (int64, bool) {
	switch v := claims[name].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func (v *JWTVerifier) certificates(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.CertsEndpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch certificates: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch certificates: unexpected http status code: %d", res.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(res.Body).Decode(&certs); err != nil {
		return nil, fmt.Errorf("decode certificates: %w", err)
	}
	return certs, nil
}

func (v *JWTVerifier) certificateFromToken(ctx context.Context, token *jwt.Token) ([]byte, error) {
	kid, ok := token.Header["kid"]
	if !ok {
		return nil, errors.New("kid not found")
	}

	kidString, ok := kid.(string)
	if !ok {
		return nil, errors.New("kid cast error to string")
	}

	certs, err := v.certificates(ctx)
	if err != nil {
		return nil, err
	}
	cert, ok := certs[kidString]
	if !ok {
		return nil, fmt.Errorf("no certificate for kid %s", kidString)
	}
	return []byte(cert), nil
}

func verifyPayload(t *jwt.Token, projectID string) (string, error) {
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	if aud, _ := claims["aud"].(string); aud != projectID {
		return "", fmt.Errorf("audience %q", aud)
	}

	iss := "https://securetoken.google.com/" + projectID
	if claimsIss, _ := claims["iss"].(string); claimsIss != iss {
		return "", fmt.Errorf("issuer %q", claimsIss)
	}

	uid, _ := claims["sub"].(string)
	if uid == "" {
		return "", errors.New("empty subject")
	}

	now := time.Now()
	for _, name := range []string{"auth_time", "iat"} {
		at, ok := numericClaim(claims, name)
		if !ok {
			return "", fmt.Errorf("missing %s", name)
		}
		if time.Unix(at, 0).After(now) {
			return "", fmt.Errorf("%s is in the future", name)
		}
	}

	return uid, nil
}

func readPublicKey(cert []byte) (*rsa.PublicKey, error) {
	publicKeyBlock, _ := pem.Decode(cert)

	if publicKeyBlock == nil {
		return nil, errors.New("invalid public key data")
	}

	if publicKeyBlock.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("invalid public key type: %s", publicKeyBlock.Type)
	}

	c, err := x509.ParseCertificate(publicKeyBlock.Bytes)
	if err != nil {
		return nil, err
	}

	publicKey, ok := c.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not RSA public key")
	}

	return publicKey, nil
}
