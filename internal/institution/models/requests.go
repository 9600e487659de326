package models

// CreateInstitutionRequest is the admin payload for POST /api/v1/institutions.
type CreateInstitutionRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=128"`
	Type        string   `json:"type" validate:"required,oneof=care_facility community_center school_welfare"`
	Address     string   `json:"address" validate:"max=255"`
	Phone       string   `json:"phone" validate:"max=20"`
	Capacity    int      `json:"capacity" validate:"gte=0"`
	ServiceTags []string `json:"service_tags" validate:"max=20,dive,max=40"`
}

// UpdateInstitutionRequest carries optional fields for PATCH.
type UpdateInstitutionRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=128"`
	Address     *string   `json:"address" validate:"omitempty,max=255"`
	Phone       *string   `json:"phone" validate:"omitempty,max=20"`
	Capacity    *int      `json:"capacity" validate:"omitempty,gte=0"`
	ServiceTags *[]string `json:"service_tags" validate:"omitempty,max=20"`
}

func (r UpdateInstitutionRequest) Patch() Patch {
	return Patch{
		Name:        r.Name,
		Address:     r.Address,
		Phone:       r.Phone,
		Capacity:    r.Capacity,
		ServiceTags: r.ServiceTags,
	}
}

type ListResponse struct {
	Institutions []*Institution `json:"institutions"`
}
