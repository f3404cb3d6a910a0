// Package authstore persists the description attached to each authorized
// source address across runs. One shared list covers every target; the
// backing file is the deployment configuration file also used by the shell
// side of the pipeline.
package authstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/voxlane/asrctl/internal/envfile"
)

// Configuration keys written by Save. The two list keys are parallel
// space-delimited fields: position i of the descriptions field labels
// position i of the address field.
const (
	KeyAddresses    = "AUTHORIZED_IPS_LIST"
	KeyDescriptions = "AUTHORIZED_IPS_DESCRIPTIONS"
	KeyConfigured   = "SECURITY_CONFIGURED"
)

// Store loads and saves the CIDR → description mapping in a shared
// KEY=value configuration file. All unrelated lines in the file are
// preserved untouched.
type Store struct {
	path string
}

// New returns a store bound to the configuration file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted mapping. A missing file or missing keys mean
// "no prior state" and yield an empty mapping, not an error; the first
// run has nothing persisted yet. Duplicate addresses collapse; the last
// occurrence's description wins.
func (s *Store) Load() (map[string]string, error) {
	f, err := envfile.LoadOrEmpty(s.path)
	if err != nil {
		return nil, fmt.Errorf("load authorized IPs from %s: %w", s.path, err)
	}

	addrField, _ := f.Lookup(KeyAddresses)
	descField, _ := f.Lookup(KeyDescriptions)

	addrs := strings.Fields(addrField)
	descs := strings.Fields(descField)

	entries := make(map[string]string, len(addrs))
	for i, addr := range addrs {
		desc := ""
		if i < len(descs) {
			desc = descs[i]
		}
		entries[addr] = desc
	}
	return entries, nil
}

// Save writes the mapping back. Existing key lines are overwritten in
// place; absent keys are appended along with the SECURITY_CONFIGURED
// marker. Addresses are written in sorted order so repeated saves of the
// same mapping produce identical files.
//
// Descriptions are stored in a space-delimited field, so embedded
// whitespace is folded to underscores on the way in.
func (s *Store) Save(entries map[string]string) error {
	f, err := envfile.LoadOrEmpty(s.path)
	if err != nil {
		return fmt.Errorf("load %s before save: %w", s.path, err)
	}

	addrs := make([]string, 0, len(entries))
	for addr := range entries {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	descs := make([]string, len(addrs))
	for i, addr := range addrs {
		descs[i] = sanitizeDescription(entries[addr])
	}

	f.Set(KeyAddresses, strings.Join(addrs, " "))
	f.Set(KeyDescriptions, strings.Join(descs, " "))
	f.Set(KeyConfigured, "true")

	if err := f.Save(); err != nil {
		return fmt.Errorf("save authorized IPs to %s: %w", s.path, err)
	}
	return nil
}

// sanitizeDescription makes a free-text label safe for the space-delimited
// field format. Empty descriptions get a placeholder so the parallel
// fields keep their index correspondence.
func sanitizeDescription(desc string) string {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return "unnamed"
	}
	return strings.Join(fields, "_")
}
