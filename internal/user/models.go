package user

import "time"

// Role determines what a user may do. Voters and candidates go through the
// approval workflow; admins are internal accounts.
type Role string

const (
	RoleVoter     Role = "VOTER"
	RoleCandidate Role = "CANDIDATE"
	RoleAdmin     Role = "ADMIN"
)

// AdminType narrows admin accounts; only SUPER admins may create admins.
type AdminType string

const (
	AdminSuper        AdminType = "SUPER"
	AdminElection     AdminType = "ELECTION"
	AdminVerification AdminType = "VERIFICATION"
)

// ApprovalStatus is the admin-approval state for voters and candidates.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// User is an account of any role. EnrollmentID is the student eligibility
// identifier: unique when present, absent for admins, and the backstop key
// for duplicate-ballot prevention.
type User struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	PasswordHash string `json:"-"`

	Role           Role           `json:"role"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus"`
	ApprovalNote   string         `json:"approvalNote,omitempty"`
	ApprovedAt     *time.Time     `json:"approvedAt,omitempty"`
	ApprovedBy     string         `json:"approvedBy,omitempty"`

	EnrollmentID   string `json:"enrollmentId,omitempty"`
	ScholarNumber  string `json:"scholarOrRollNumber,omitempty"`
	Department     string `json:"department,omitempty"`
	SemesterOrYear string `json:"semesterOrYear,omitempty"`

	AdminID   string    `json:"adminId,omitempty"`
	AdminType AdminType `json:"adminType,omitempty"`

	IsEmailVerified  bool       `json:"isEmailVerified"`
	IsMobileVerified bool       `json:"isMobileVerified"`
	IsActive         bool       `json:"isActive"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`

	ResetTokenHash []byte     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Verified reports whether both OTP channels have been confirmed.
func (u *User) Verified() bool {
	return u.IsEmailVerified && u.IsMobileVerified
}

// EligibleVoter reports whether the user may cast a ballot: an approved,
// verified, active voter.
func (u *User) EligibleVoter() bool {
	return u.Role == RoleVoter &&
		u.ApprovalStatus == ApprovalApproved &&
		u.IsActive &&
		u.Verified()
}

// ApprovedCandidate reports whether the user may receive votes.
func (u *User) ApprovedCandidate() bool {
	return u.Role == RoleCandidate &&
		u.ApprovalStatus == ApprovalApproved &&
		u.IsActive
}
