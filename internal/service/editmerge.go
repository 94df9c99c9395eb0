package service

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// mergeSections copies data from the student's partial resubmission into the
// record, honouring the grant's two-level permission model: sections outside
// the grant are silently ignored; partially-open sections accept only their
// flagged field keys.
func mergeSections(a *models.Admission, updated map[string]json.RawMessage, grant *models.EditGrant) error {
	for name, raw := range updated {
		section := models.Section(name)
		if !section.Valid() || !grant.AllowsSection(section) {
			continue
		}
		if err := mergeSection(a, section, raw, grant); err != nil {
			return err
		}
	}
	return nil
}

func mergeSection(a *models.Admission, section models.Section, raw json.RawMessage, grant *models.EditGrant) error {
	switch section {
	case models.SectionPersonal:
		return mergeKeyed(&a.Personal, section, raw, grant)
	case models.SectionCourse:
		return mergeKeyed(&a.Course, section, raw, grant)
	case models.SectionIDs:
		return mergeKeyed(&a.IDs, section, raw, grant)
	case models.SectionCenter:
		return mergeKeyed(&a.Center, section, raw, grant)
	case models.SectionEducation:
		// Education is reviewed as a whole table: the resubmission replaces
		// the full row list.
		var rows []models.EducationRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			return fmt.Errorf("decode education rows: %w", err)
		}
		if len(rows) > 0 {
			a.Education = rows
		}
		return nil
	case models.SectionUploads:
		var uploads map[string]string
		if err := json.Unmarshal(raw, &uploads); err != nil {
			return fmt.Errorf("decode uploads payload: %w", err)
		}
		if path, ok := uploads["photo"]; ok && path != "" && grant.IsFieldEditable(section, "up_photo") {
			a.Personal.PhotoPath = path
		}
		if path, ok := uploads["pan"]; ok && path != "" && grant.IsFieldEditable(section, "up_pan") {
			a.IDs.PANDocPath = path
		}
		if path, ok := uploads["aadhaar"]; ok && path != "" && grant.IsFieldEditable(section, "up_aadhaar") {
			a.IDs.AadhaarPath = path
		}
		return nil
	case models.SectionSignatures:
		var sigs map[string]string
		if err := json.Unmarshal(raw, &sigs); err != nil {
			return fmt.Errorf("decode signatures payload: %w", err)
		}
		if path, ok := sigs["student"]; ok && path != "" && grant.IsFieldEditable(section, "sg_student") {
			a.Signatures.StudentPath = path
		}
		if path, ok := sigs["parent"]; ok && path != "" && grant.IsFieldEditable(section, "sg_parent") {
			a.Signatures.ParentPath = path
		}
		return nil
	}
	return nil
}

// mergeKeyed merges the provided JSON object key-by-key into the target
// struct. For sections with field-level granularity, only keys whose
// namespaced field key is inside the grant are applied.
func mergeKeyed(target interface{}, section models.Section, raw json.RawMessage, grant *models.EditGrant) error {
	var provided map[string]json.RawMessage
	if err := json.Unmarshal(raw, &provided); err != nil {
		return fmt.Errorf("decode %s payload: %w", section, err)
	}

	currentRaw, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("encode current %s: %w", section, err)
	}
	var current map[string]json.RawMessage
	if err := json.Unmarshal(currentRaw, &current); err != nil {
		return fmt.Errorf("decode current %s: %w", section, err)
	}

	prefix := section.FieldPrefix()
	for key, value := range provided {
		if section.SupportsFieldFlags() && !grant.IsFieldEditable(section, prefix+key) {
			continue
		}
		current[key] = value
	}

	mergedRaw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode merged %s: %w", section, err)
	}
	if err := json.Unmarshal(mergedRaw, target); err != nil {
		return fmt.Errorf("apply merged %s: %w", section, err)
	}
	return nil
}
