package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"pricewatch-utils/internal/logging"
)

var (
	// RetailDomainsFile path can be configured via environment variable
	RetailDomainsFile = getConfiguredRetailDomainsFile()
)

func getConfiguredRetailDomainsFile() string {
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		return fmt.Sprintf("%s/retail-domains.txt", dataDir)
	}
	return "retail-domains.txt"
}

// defaultRetailDomains are storefronts with stable, well-understood markup.
// The hybrid engine extracts from these heuristically before spending LLM
// tokens; unrecognized domains go through the LLM first.
var defaultRetailDomains = []string{
	"amazon.com",
	"nike.com",
	"bestbuy.com",
	"walmart.com",
	"target.com",
	"apple.com",
	"adidas.com",
	"puma.com",
}

// RetailDomainManager manages the list of storefront domains with known markup
type RetailDomainManager struct {
	domains map[string]time.Time // domain -> first seen time
	mu      sync.RWMutex
	logger  logging.Logger
}

// NewRetailDomainManager creates a new retail domain manager seeded with the
// built-in storefronts and any domains persisted from previous runs
func NewRetailDomainManager() *RetailDomainManager {
	manager := &RetailDomainManager{
		domains: make(map[string]time.Time),
		logger:  logging.GetGlobalLogger(),
	}

	now := time.Now()
	for _, domain := range defaultRetailDomains {
		manager.domains[domain] = now
	}

	// Load learned domains from file
	if err := manager.loadDomains(); err != nil {
		manager.logger.Error("Failed to load retail domains from file", map[string]interface{}{
			"file":  RetailDomainsFile,
			"error": err.Error(),
		})
	}

	return manager
}

// IsKnownRetailDomain checks if a URL belongs to a storefront with known
// markup. Subdomains match their parent: smile.amazon.com counts as amazon.com.
func (rdm *RetailDomainManager) IsKnownRetailDomain(urlStr string) bool {
	domain := ExtractDomain(urlStr)
	if domain == "" {
		return false
	}

	rdm.mu.RLock()
	defer rdm.mu.RUnlock()

	if _, exists := rdm.domains[domain]; exists {
		return true
	}
	for known := range rdm.domains {
		if strings.HasSuffix(domain, "."+known) {
			return true
		}
	}
	return false
}

// AddRetailDomain adds a domain to the known retail domains list
func (rdm *RetailDomainManager) AddRetailDomain(urlStr string) error {
	domain := ExtractDomain(urlStr)
	if domain == "" {
		return fmt.Errorf("failed to extract domain from URL %s", urlStr)
	}

	rdm.mu.Lock()
	defer rdm.mu.Unlock()

	now := time.Now()
	if _, exists := rdm.domains[domain]; !exists {
		rdm.domains[domain] = now

		rdm.logger.Info("Added new retail domain", map[string]interface{}{
			"domain":      domain,
			"total_count": len(rdm.domains),
		})

		// Save to file
		if err := rdm.saveDomains(); err != nil {
			rdm.logger.Error("Failed to save retail domains to file", map[string]interface{}{
				"file":  RetailDomainsFile,
				"error": err.Error(),
			})
		}
	}

	return nil
}

// GetKnownDomains returns a copy of all known retail domains
func (rdm *RetailDomainManager) GetKnownDomains() map[string]time.Time {
	rdm.mu.RLock()
	defer rdm.mu.RUnlock()

	// Create a copy to avoid race conditions
	copy := make(map[string]time.Time)
	for domain, timestamp := range rdm.domains {
		copy[domain] = timestamp
	}

	return copy
}

// GetDomainsCount returns the number of known retail domains
func (rdm *RetailDomainManager) GetDomainsCount() int {
	rdm.mu.RLock()
	defer rdm.mu.RUnlock()
	return len(rdm.domains)
}

// loadDomains loads domains from the retail domains file
func (rdm *RetailDomainManager) loadDomains() error {
	file, err := os.Open(RetailDomainsFile)
	if err != nil {
		if os.IsNotExist(err) {
			rdm.logger.Debug("Retail domains file does not exist, using built-in list")
			return nil
		}
		return fmt.Errorf("failed to open retail domains file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	domainsLoaded := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue // Skip empty lines and comments
		}

		parts := strings.SplitN(line, "\t", 2)
		domain := parts[0]

		var firstSeen time.Time
		if len(parts) > 1 {
			if parsed, err := time.Parse(time.RFC3339, parts[1]); err == nil {
				firstSeen = parsed
			} else {
				firstSeen = time.Now()
			}
		} else {
			firstSeen = time.Now()
		}

		rdm.domains[domain] = firstSeen
		domainsLoaded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading retail domains file: %w", err)
	}

	rdm.logger.Info("Loaded retail domains from file", map[string]interface{}{
		"count": domainsLoaded,
	})
	return nil
}

// saveDomains saves the current domains to the retail domains file
func (rdm *RetailDomainManager) saveDomains() error {
	file, err := os.Create(RetailDomainsFile)
	if err != nil {
		return fmt.Errorf("failed to create retail domains file: %w", err)
	}
	defer file.Close()

	// Write header comment
	fmt.Fprintf(file, "# Storefront domains with known markup (automatically managed)\n")
	fmt.Fprintf(file, "# Format: domain\\tfirst_seen_timestamp\n")
	fmt.Fprintf(file, "# This file is auto-generated and should not be manually edited\n\n")

	// Write domains
	for domain, firstSeen := range rdm.domains {
		fmt.Fprintf(file, "%s\t%s\n", domain, firstSeen.Format(time.RFC3339))
	}

	return nil
}
