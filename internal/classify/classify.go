package classify

import "strings"

// Classify returns the role of label as a child of a directory with role
// parent. For RoleState results, region holds the matched region name.
// err is non-nil only for ambiguous region archives, which are reported
// as RoleOtherFile.
//
// Parents are interpreted as follows:
//   - RoleOtherDirectory with no further context is the published root,
//     whose accepted children are year directories.
//   - RoleYear children are the documentation and data branches.
//   - RoleData and RoleByStateGroup children are region archives, region
//     directories, template archives and further by-state groupings.
//   - RoleState children are leaf payload files.
//   - RoleDocumentation children are plain directories and files.
func Classify(label string, parent Role, m RegionMatcher) (role Role, region string, err error) {
	isDir := strings.HasSuffix(label, "/")
	other := RoleOtherFile
	if isDir {
		other = RoleOtherDirectory
	}

	switch parent {
	case RoleOtherDirectory:
		if IsYearDir(label) {
			return RoleYear, "", nil
		}
	case RoleYear:
		switch {
		case IsDocumentationDir(label):
			return RoleDocumentation, "", nil
		case IsDataDir(label):
			return RoleData, "", nil
		}
	case RoleData, RoleByStateGroup:
		if isDir {
			if r, ok := m.MatchDir(label); ok {
				return RoleState, r, nil
			}
			if IsByStateGroup(label) {
				return RoleByStateGroup, "", nil
			}
			return other, "", nil
		}
		r, ok, err := m.Match(label)
		if err != nil {
			return other, "", err
		}
		if ok {
			return RoleState, r, nil
		}
		if IsFileTemplateArchive(label) {
			return RoleFileTemplateArchive, "", nil
		}
	case RoleState:
		if !isDir && IsLeafPayload(label) {
			return RoleStateLeafArchive, "", nil
		}
	}
	return other, "", nil
}
