// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package text

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var entries = map[language.Tag]map[Key]string{
	language.English: {
		OperationStatusInitializeSession:            "Initializing session...",
		OperationStatusInitializeWorkspace:          "Initializing session workspace...",
		OperationStatusRevertWorkspace:              "Removing session workspace...",
		OperationStatusValidateConfiguration:        "Validating configuration...",
		OperationStatusValidateRemoteSessionPolicy:  "Validating remote session policy...",
		OperationStatusValidateVirtualMachinePolicy: "Validating virtual machine policy...",
		MessageBoxRemoteSessionDetected:             "This computer appears to be accessed through a remote session. Do you want to continue?",
		MessageBoxRemoteSessionDetectedTitle:        "Remote Session Detected",
		MessageBoxVirtualMachineDetected:            "This computer appears to be a virtual machine. Do you want to continue?",
		MessageBoxVirtualMachineDetectedTitle:       "Virtual Machine Detected",
	},
	language.German: {
		OperationStatusInitializeSession:            "Sitzung wird initialisiert...",
		OperationStatusInitializeWorkspace:          "Arbeitsverzeichnis der Sitzung wird angelegt...",
		OperationStatusRevertWorkspace:              "Arbeitsverzeichnis der Sitzung wird entfernt...",
		OperationStatusValidateConfiguration:        "Konfiguration wird validiert...",
		OperationStatusValidateRemoteSessionPolicy:  "Richtlinie für Remote-Sitzungen wird validiert...",
		OperationStatusValidateVirtualMachinePolicy: "Richtlinie für virtuelle Maschinen wird validiert...",
		MessageBoxRemoteSessionDetected:             "Dieser Computer wird scheinbar über eine Remote-Sitzung verwendet. Möchten Sie fortfahren?",
		MessageBoxRemoteSessionDetectedTitle:        "Remote-Sitzung erkannt",
		MessageBoxVirtualMachineDetected:            "Dieser Computer scheint eine virtuelle Maschine zu sein. Möchten Sie fortfahren?",
		MessageBoxVirtualMachineDetectedTitle:       "Virtuelle Maschine erkannt",
	},
}

var defaultCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range entries {
		for key, msg := range msgs {
			// Catalog entries are plain text; escape printf verbs.
			_ = b.SetString(tag, string(key), escape(msg))
		}
	}
	return b
}

func escape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' {
			out = append(out, '%', '%')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Resolver turns text keys into displayable strings for one language.
type Resolver struct {
	tag     language.Tag
	printer *message.Printer
}

// NewResolver returns a resolver for the best supported match of lang.
// Unknown or empty languages fall back to English.
func NewResolver(lang string) *Resolver {
	tag := language.English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			matcher := language.NewMatcher(defaultCatalog.Languages())
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = defaultCatalog.Languages()[idx]
			}
		}
	}
	return &Resolver{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(defaultCatalog)),
	}
}

// Language returns the tag the resolver prints in.
func (r *Resolver) Language() language.Tag { return r.tag }

// Resolve returns the text for key. Keys missing from the catalog resolve to
// the key itself so events never render empty.
func (r *Resolver) Resolve(key Key) string {
	if !known(key) {
		return string(key)
	}
	return r.printer.Sprintf(string(key))
}

func known(key Key) bool {
	_, ok := entries[language.English][key]
	return ok
}
