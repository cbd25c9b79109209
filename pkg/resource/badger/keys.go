package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize the
// resource tree into logical namespaces. This design:
//   - Prevents key collisions between different entity types
//   - Enables efficient range scans (e.g., all children of a folder)
//   - Makes the database structure self-documenting
//
// Entities are identified by UUID v4 (random), matching the IDs assigned by
// the store on first save.
//
// Key Namespace Prefixes:
//
// Data Type            Prefix   Key Format                       Value
// =========================================================================
// User                 "u:"     u:<uuid>                         User (JSON)
// Username index       "un:"    un:<username>                    userUUID
// Email index          "ue:"    ue:<email>                       userUUID
// Folder               "f:"     f:<uuid>                         Folder (JSON)
// Folder child index   "fi:"    fi:<parentUUID>:<name>           folderUUID
// File                 "d:"     d:<uuid>                         File (JSON)
// File child index     "di:"    di:<folderUUID>:<name>           fileUUID
// Link                 "l:"     l:<uuid>                         Link (JSON)
// Link child index     "li:"    li:<folderUUID>:<name>           linkUUID
// Link target index    "lt:"    lt:<fileUUID>:<linkUUID>         linkUUID
// Link owner index     "lo:"    lo:<fileUUID>:<ownerUUID>        linkUUID
// Grant                "g:"     g:<fileUUID>:<userUUID>          Grant (JSON)
//
// Index keys always place the user-chosen name LAST, so names containing
// ":" cannot corrupt the namespace. Listing children of a folder is a range
// scan over "fi:<parentUUID>:" plus "di:" plus "li:" prefixes; grant and
// link-by-target listings are range scans over "g:<fileUUID>:" and
// "lt:<fileUUID>:".
//
// Root folders have no parent; their child-index entries use the sentinel
// parent ID "root" (which can never collide with a UUID).

const (
	prefixUser     = "u:"
	prefixUsername = "un:"
	prefixEmail    = "ue:"

	prefixFolder      = "f:"
	prefixFolderChild = "fi:"

	prefixFile      = "d:"
	prefixFileChild = "di:"

	prefixLink       = "l:"
	prefixLinkChild  = "li:"
	prefixLinkTarget = "lt:"
	prefixLinkOwner  = "lo:"

	prefixGrant = "g:"

	// rootParentID is the sentinel used in child-index keys for folders
	// without a parent.
	rootParentID = "root"
)

func userKey(id string) []byte             { return []byte(prefixUser + id) }
func usernameKey(username string) []byte   { return []byte(prefixUsername + username) }
func emailKey(email string) []byte         { return []byte(prefixEmail + email) }
func folderKey(id string) []byte           { return []byte(prefixFolder + id) }
func fileKey(id string) []byte             { return []byte(prefixFile + id) }
func linkKey(id string) []byte             { return []byte(prefixLink + id) }
func grantKey(fileID, userID string) []byte {
	return []byte(prefixGrant + fileID + ":" + userID)
}

func indexParent(parentID string) string {
	if parentID == "" {
		return rootParentID
	}
	return parentID
}

func folderChildKey(parentID, name string) []byte {
	return []byte(prefixFolderChild + indexParent(parentID) + ":" + name)
}

func fileChildKey(folderID, name string) []byte {
	return []byte(prefixFileChild + folderID + ":" + name)
}

func linkChildKey(folderID, name string) []byte {
	return []byte(prefixLinkChild + folderID + ":" + name)
}

func linkTargetKey(fileID, linkID string) []byte {
	return []byte(prefixLinkTarget + fileID + ":" + linkID)
}

func linkOwnerKey(fileID, ownerID string) []byte {
	return []byte(prefixLinkOwner + fileID + ":" + ownerID)
}

func folderChildScanPrefix(parentID string) []byte {
	return []byte(prefixFolderChild + indexParent(parentID) + ":")
}

func fileChildScanPrefix(folderID string) []byte {
	return []byte(prefixFileChild + folderID + ":")
}

func linkChildScanPrefix(folderID string) []byte {
	return []byte(prefixLinkChild + folderID + ":")
}

func linkTargetScanPrefix(fileID string) []byte {
	return []byte(prefixLinkTarget + fileID + ":")
}

func grantScanPrefix(fileID string) []byte {
	return []byte(prefixGrant + fileID + ":")
}
