package classify

// Role is the classification of a listing entry within its parent.
type Role int

const (
	// RoleOtherFile is a file no rule accepts.
	RoleOtherFile Role = iota
	// RoleOtherDirectory is a directory no rule accepts.
	RoleOtherDirectory
	// RoleYear is a four-digit year directory below the root.
	RoleYear
	// RoleDocumentation is the documentation branch of a year.
	RoleDocumentation
	// RoleData is the data branch of a year.
	RoleData
	// RoleState is a region directory or a per-region archive.
	RoleState
	// RoleStateLeafArchive is a payload file inside a region directory.
	RoleStateLeafArchive
	// RoleByStateGroup is an intermediate N_year or N_year_by_state directory.
	RoleByStateGroup
	// RoleFileTemplateArchive is a summary file template archive.
	RoleFileTemplateArchive
)

// String returns the role name used in logs and the manifest.
func (r Role) String() string {
	switch r {
	case RoleYear:
		return "year"
	case RoleDocumentation:
		return "documentation"
	case RoleData:
		return "data"
	case RoleState:
		return "state"
	case RoleStateLeafArchive:
		return "state_leaf"
	case RoleByStateGroup:
		return "by_state_group"
	case RoleFileTemplateArchive:
		return "file_template"
	case RoleOtherDirectory:
		return "other_directory"
	default:
		return "other_file"
	}
}
