/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package certresolver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mholt/acmez/v3"
	"github.com/mholt/acmez/v3/acme"
	"golang.org/x/sync/singleflight"
)

const (
	LetsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"
	LetsEncryptStaging    = "https://acme-staging-v02.api.letsencrypt.org/directory"

	defaultRenewMargin = 30 * 24 * time.Hour
)

// ACME resolves SNI hostnames to certificates issued on demand through an
// ACME directory (Let's Encrypt production or staging), persisting and
// renewing them under PersistDir.
type ACME struct {
	Directory   string
	Email       string
	PersistDir  string
	Solver      acmez.Solver
	RenewMargin time.Duration

	mu    sync.Mutex
	cache map[string]*tls.Certificate
	group singleflight.Group
}

func NewACME(directory, email, persistDir string, solver acmez.Solver) *ACME {
	return &ACME{
		Directory:  directory,
		Email:      email,
		PersistDir: persistDir,
		Solver:     solver,
		cache:      make(map[string]*tls.Certificate),
	}
}

func (a *ACME) renewMargin() time.Duration {
	if a.RenewMargin <= 0 {
		return defaultRenewMargin
	}
	return a.RenewMargin
}

func (a *ACME) Resolve(sni string) (*tls.Certificate, error) {
	host := normalizeHost(sni)
	if host == "" {
		return nil, ErrorCertNotFound.Error(nil)
	}

	a.mu.Lock()
	cert, ok := a.cache[host]
	a.mu.Unlock()

	if ok && !needsRenewal(cert, a.renewMargin()) {
		return cert, nil
	}

	if cert, err := a.loadFromDisk(host); err == nil && !needsRenewal(cert, a.renewMargin()) {
		a.mu.Lock()
		a.cache[host] = cert
		a.mu.Unlock()
		return cert, nil
	}

	v, err, _ := a.group.Do(host, func() (interface{}, error) {
		return a.issue(host)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tls.Certificate), nil
}

func needsRenewal(cert *tls.Certificate, margin time.Duration) bool {
	if cert == nil || len(cert.Certificate) == 0 {
		return true
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return true
	}
	return time.Now().Add(margin).After(leaf.NotAfter)
}

func (a *ACME) issue(host string) (*tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, ErrorACMEIssue.Error(err)
	}

	client := acmez.Client{
		Client: &acme.Client{
			Directory: a.Directory,
		},
		ChallengeSolvers: map[string]acmez.Solver{
			acme.ChallengeTypeHTTP01: a.Solver,
		},
	}

	account := acme.Account{
		Contact:              []string{"mailto:" + a.Email},
		TermsOfServiceAgreed: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	certs, err := client.ObtainCertificateForSANs(ctx, account, key, []string{host})
	if err != nil || len(certs) == 0 {
		return nil, ErrorACMEIssue.Error(err)
	}

	cert, err := tls.X509KeyPair(certs[0].ChainPEM, pemEncodeKey(key))
	if err != nil {
		return nil, ErrorACMEIssue.Error(err)
	}

	if perr := a.persist(host, certs[0].ChainPEM, pemEncodeKey(key)); perr != nil {
		return nil, ErrorCertPersist.Error(perr)
	}

	a.mu.Lock()
	a.cache[host] = &cert
	a.mu.Unlock()

	return &cert, nil
}

func pemEncodeKey(key *ecdsa.PrivateKey) []byte {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func (a *ACME) persist(host string, certPEM, keyPEM []byte) error {
	if a.PersistDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.PersistDir, 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.PersistDir, host+".crt"), certPEM, 0o640); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.PersistDir, host+".key"), keyPEM, 0o600)
}

func (a *ACME) loadFromDisk(host string) (*tls.Certificate, error) {
	if a.PersistDir == "" {
		return nil, ErrorCertNotFound.Error(nil)
	}

	certPEM, err := os.ReadFile(filepath.Join(a.PersistDir, host+".crt"))
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(filepath.Join(a.PersistDir, host+".key"))
	if err != nil {
		return nil, err
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}
