// Package templates is the reply Template Store (spec component Q /
// SPEC_FULL.md §9 "Message template storage"): a key → string mapping with
// sane defaults and an optional json5 override file, so the handler never
// hard-codes reply content.
package templates

import (
	"fmt"
	"os"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Key names every reply the handler pipeline can emit (spec §4.I).
type Key string

const (
	Welcome           Key = "WELCOME"
	ChooseOptionAck   Key = "CHOOSE_OPTION_ACK"
	FormTemplate      Key = "FORM_TEMPLATE"
	FormReceived      Key = "FORM_RECEIVED"
	PartnershipAck    Key = "PARTNERSHIP_ACK"
	OtherNeedsAck     Key = "OTHER_NEEDS_ACK"
	QuestionReceived  Key = "QUESTION_RECEIVED"
	InvalidOption     Key = "INVALID_OPTION"
	EscalationNotice  Key = "ESCALATION_NOTICE"
)

func defaults() map[Key]string {
	return map[Key]string{
		Welcome: "Halo! Terima kasih sudah menghubungi kami. Silakan pilih salah satu opsi berikut:\n" +
			"1. Daftar sebagai calon mitra franchise\n" +
			"2. Tanya kerja sama / partnership\n" +
			"3. Kebutuhan lainnya",
		ChooseOptionAck: "Baik, kami akan kirimkan formulir pendaftaran calon mitra. Mohon isi data berikut.",
		FormTemplate: "Mohon lengkapi data berikut dalam satu pesan:\n" +
			"Nama, Domisili: \n" +
			"Sumber info: \n" +
			"Jenis bisnis: \n" +
			"Budget: \n" +
			"Rencana mulai: ",
		FormReceived:     "Terima kasih, data Anda sudah kami terima. Tim kami akan segera menghubungi Anda.",
		PartnershipAck:   "Terima kasih atas ketertarikan Anda untuk bekerja sama. Tim kami akan segera menghubungi Anda.",
		OtherNeedsAck:    "Baik, mohon jelaskan kebutuhan Anda dan tim kami akan membantu.",
		QuestionReceived: "Terima kasih, pesan Anda sudah kami teruskan ke tim kami.",
		InvalidOption:    "Mohon maaf, pilihan tidak dikenali. Silakan balas dengan angka 1, 2, atau 3.",
		EscalationNotice: "Pesan Anda telah diteruskan ke tim kami untuk ditindaklanjuti secara langsung.",
	}
}

// Store holds the merged default+override mapping.
type Store struct {
	values map[Key]string
}

// Load builds the default mapping and, if overridePath is non-empty and the
// file exists, merges in a json5 override file keyed by the same Key names.
func Load(overridePath string) (*Store, error) {
	s := &Store{values: defaults()}
	if overridePath == "" {
		return s, nil
	}
	data, err := os.ReadFile(overridePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("templates: read override: %w", err)
	}
	var overrides map[string]string
	if err := json5.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("templates: parse override: %w", err)
	}
	for k, v := range overrides {
		s.values[Key(k)] = v
	}
	return s, nil
}

// Get returns the text for key, or an empty string if somehow unknown.
func (s *Store) Get(key Key) string {
	return s.values[key]
}
