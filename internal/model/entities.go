// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import "time"

// OrganizationType enumerates the kind of organization behind an Innovation.
type OrganizationType string

const (
	OrgTypeCompany    OrganizationType = "company"
	OrgTypeUniversity OrganizationType = "university"
	OrgTypeNGO        OrganizationType = "ngo"
	OrgTypeGovernment OrganizationType = "government"
	OrgTypeInvestor   OrganizationType = "investor"
	OrgTypeOther      OrganizationType = "other"
)

// Organization is an arena-stored entity referenced by ID from Innovation
// (spec.md §9 Design Note: opaque IDs, not pointers, to keep the entity graph
// acyclic in memory — the Persistence gateway holds the authoritative copy).
type Organization struct {
	ID   string
	Name string
	Type OrganizationType

	Country string
	Website string

	FoundedDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndividualRole enumerates the relationship of a person to an Innovation.
type IndividualRole string

const (
	RoleFounder    IndividualRole = "founder"
	RoleResearcher IndividualRole = "researcher"
	RoleExecutive  IndividualRole = "executive"
	RoleInvestor   IndividualRole = "investor"
	RoleOther      IndividualRole = "other"
)

// Individual is an arena-stored entity referenced by ID from Innovation and
// Publication (author lists resolve to Individual IDs once matched).
type Individual struct {
	ID   string
	Name string
	Role IndividualRole

	AffiliationOrgID string
	Country          string

	CreatedAt time.Time
	UpdatedAt time.Time
}
