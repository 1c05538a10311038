// Package binary installs a versioned release binary for the current host.
//
// # Flow
//
// A Provisioner runs one install:
//
//  1. read the version from the manifest
//  2. resolve the host platform to a platform.Key
//  3. take the install lock and create <root>/bin
//  4. stop early when <root>/bin/<binary> already exists
//  5. locate the release artifact for the key
//  6. fetch the archive, following redirects by hand
//  7. optionally verify it (OpenPGP signature, SHA-256 checksums)
//  8. extract it into <root>/bin and mark the binary executable
//  9. best-effort link into the package manager's global bin directory
//  10. remove the downloaded archive
//
// Any failure in steps 1-8 is fatal and returned as a typed error; see
// errors.go. Linking never fails a run.
//
// # Usage
//
//	p, err := binary.NewProvisioner(cfg, binary.Options{
//	    Logger:   logger,
//	    Progress: os.Stdout,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := p.Provision(ctx)
//
// # Architecture
//
//   - Provisioner: orchestration, idempotency, permissions, linking, cleanup
//   - Locator: pure URL and path construction
//   - Fetcher: HTTP download with bounded redirects and retries
//   - ArchiveExtractor: tar subprocess or in-process tar.gz extraction
//   - Verifier: detached OpenPGP signatures and SHA-256 checksum files
package binary
