package domain

// RemoteUser is the cloud-side projection of a user: scalar profile fields,
// the activity log and the owning key. Missing fields decode as "".
type RemoteUser struct {
	UserID      string
	Name        string
	Email       string
	Address     string
	Phone       string
	Image       string
	ActivityLog []SessionLogEntry
}

// UserFromRemote builds a local record for a user known only remotely (new
// device, reinstall). Login/logout come from the last activity entry.
func UserFromRemote(key string, r *RemoteUser) *User {
	u := &User{
		ID:      key,
		Name:    r.Name,
		Email:   r.Email,
		Address: r.Address,
		Phone:   r.Phone,
		Image:   DecodeAvatar(r.Image),
	}
	if last, ok := LastEntry(r.ActivityLog); ok {
		u.LoginTime = Ptr(last.Login)
		u.LogoutTime = last.Logout
	}
	return u
}

// FillIfEmpty computes the update that copies remote values into fields that
// are empty locally. A populated local field is never overwritten. The second
// result is false when there is nothing to fill.
func FillIfEmpty(local *User, r *RemoteUser) (UserUpdate, bool) {
	upd := UserUpdate{ID: local.ID}

	if last, ok := LastEntry(r.ActivityLog); ok {
		if local.LoginTime == nil && !last.Login.IsZero() {
			upd.LoginTime = Ptr(last.Login)
		}
		if local.LogoutTime == nil && last.Logout != nil {
			upd.LogoutTime = last.Logout
		}
	}

	fill := func(localVal, remoteVal string) *string {
		if localVal == "" && remoteVal != "" {
			return Ptr(remoteVal)
		}
		return nil
	}
	upd.Name = fill(local.Name, r.Name)
	upd.Email = fill(local.Email, r.Email)
	upd.Address = fill(local.Address, r.Address)
	upd.Phone = fill(local.Phone, r.Phone)

	if local.Image.IsZero() && r.Image != "" {
		if img := DecodeAvatar(r.Image); !img.IsZero() {
			upd.Image = &img
		}
	}

	return upd, !upd.IsEmpty()
}
