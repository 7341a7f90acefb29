// Package services implements the driving ports: document ingestion and
// retrieval. Services depend only on domain types and driven ports;
// adapters are wired in by the composition root.
package services
