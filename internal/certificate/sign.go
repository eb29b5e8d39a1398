package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
)

// PayloadType is the DSSE payload type of a signed certificate.
const PayloadType = "application/vnd.securewipe.certificate+json"

// LoadSignerVerifier loads a PEM key (PKCS8, PKCS1 or PKIX). A public key
// yields a verifier that cannot sign.
func LoadSignerVerifier(pemBytes []byte) (dsse.SignerVerifier, error) {
	key, err := signerverifier.LoadKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key: %w", err)
	}

	switch key.KeyType {
	case signerverifier.ED25519KeyType:
		sv, err := signerverifier.NewED25519SignerVerifierFromSSLibKey(key)
		if err != nil {
			return nil, err
		}
		return sv, nil
	case signerverifier.ECDSAKeyType:
		sv, err := signerverifier.NewECDSASignerVerifierFromSSLibKey(key)
		if err != nil {
			return nil, err
		}
		return sv, nil
	case signerverifier.RSAKeyType:
		sv, err := signerverifier.NewRSAPSSSignerVerifierFromSSLibKey(key)
		if err != nil {
			return nil, err
		}
		return sv, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", key.KeyType)
	}
}

// LoadSignerVerifierFile reads a PEM key from path.
func LoadSignerVerifierFile(path string) (dsse.SignerVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", path, err)
	}
	return LoadSignerVerifier(data)
}

// Sign wraps the JSON form of doc into a DSSE envelope.
func Sign(ctx context.Context, doc Document, signer dsse.Signer) (*dsse.Envelope, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificate: %w", err)
	}
	es, err := dsse.NewEnvelopeSigner(signer)
	if err != nil {
		return nil, err
	}
	env, err := es.SignPayload(ctx, PayloadType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}
	return env, nil
}

// VerifyEnvelope checks the envelope signature with verifier and then the
// embedded certificate itself.
func VerifyEnvelope(ctx context.Context, env *dsse.Envelope, verifier dsse.Verifier) (Document, error) {
	if env == nil {
		return Document{}, fmt.Errorf("nil envelope")
	}
	if env.PayloadType != PayloadType {
		return Document{}, fmt.Errorf("unexpected payload type %q", env.PayloadType)
	}

	ev, err := dsse.NewEnvelopeVerifier(verifier)
	if err != nil {
		return Document{}, err
	}
	if _, err := ev.Verify(ctx, env); err != nil {
		return Document{}, fmt.Errorf("signature verification failed: %w", err)
	}

	body, err := env.DecodeB64Payload()
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode certificate: %w", err)
	}
	if err := Verify(doc); err != nil {
		return doc, err
	}
	return doc, nil
}
