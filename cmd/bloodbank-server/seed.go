package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/account"
	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/bloodrequest"
	"github.com/bloodbank/bloodbank/internal/domain/camp"
	"github.com/bloodbank/bloodbank/internal/domain/donation"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

const (
	seedAdminPassword = "admin123"
	seedUserPassword  = "password123"
)

var seedAdmin = account.RegisterInput{
	Username: "admin", Email: "admin@bloodbank.com", Password: seedAdminPassword, Role: auth.RoleAdmin,
	FullName: "System Administrator", Phone: "123-456-7890", Address: "Blood Bank Headquarters",
	BloodGroup: bloodgroup.OPos, DateOfBirth: "1980-01-01", Gender: "male",
}

var seedDonors = []account.RegisterInput{
	{Username: "john_doe", Email: "john@email.com", FullName: "John Doe", Phone: "555-0101",
		BloodGroup: bloodgroup.OPos, DateOfBirth: "1990-05-15", Gender: "male", Address: "123 Main St, City, State"},
	{Username: "jane_smith", Email: "jane@email.com", FullName: "Jane Smith", Phone: "555-0102",
		BloodGroup: bloodgroup.APos, DateOfBirth: "1985-08-22", Gender: "female", Address: "456 Oak Ave, City, State"},
	{Username: "mike_johnson", Email: "mike@email.com", FullName: "Mike Johnson", Phone: "555-0103",
		BloodGroup: bloodgroup.BPos, DateOfBirth: "1992-03-10", Gender: "male", Address: "789 Pine Rd, City, State"},
	{Username: "sarah_wilson", Email: "sarah@email.com", FullName: "Sarah Wilson", Phone: "555-0104",
		BloodGroup: bloodgroup.ABPos, DateOfBirth: "1988-11-30", Gender: "female", Address: "321 Elm St, City, State"},
	{Username: "david_brown", Email: "david@email.com", FullName: "David Brown", Phone: "555-0105",
		BloodGroup: bloodgroup.ONeg, DateOfBirth: "1995-07-08", Gender: "male", Address: "654 Maple Dr, City, State"},
}

var seedPatients = []account.RegisterInput{
	{Username: "patient1", Email: "patient1@email.com", FullName: "Alice Cooper", Phone: "555-0201",
		BloodGroup: bloodgroup.APos, DateOfBirth: "1970-04-12", Gender: "female", Address: "111 First St, City, State"},
	{Username: "patient2", Email: "patient2@email.com", FullName: "Bob Miller", Phone: "555-0202",
		BloodGroup: bloodgroup.BPos, DateOfBirth: "1965-09-25", Gender: "male", Address: "222 Second Ave, City, State"},
	{Username: "patient3", Email: "patient3@email.com", FullName: "Carol Davis", Phone: "555-0203",
		BloodGroup: bloodgroup.OPos, DateOfBirth: "1975-12-03", Gender: "female", Address: "333 Third Blvd, City, State"},
}

// seedInventory is indexed like bloodgroup.All().
var seedInventory = []int{25, 15, 20, 12, 8, 5, 30, 18}

const (
	seedDonationCount = 20
	seedRequestCount  = 15
)

var (
	seedUrgencies = []string{bloodrequest.UrgencyUrgent, bloodrequest.UrgencyNormal, bloodrequest.UrgencyLow}
	seedStatuses  = []string{bloodrequest.StatusPending, bloodrequest.StatusApproved, bloodrequest.StatusRejected}
)

func seedCamps(today time.Time) []camp.Input {
	day := func(n int) string { return dates.AddDays(today, n).Format(dates.ISO) }
	return []camp.Input{
		{Name: "City Hospital Blood Drive", Location: "City Hospital, Main Building", CampDate: day(7),
			StartTime: "09:00", EndTime: "17:00", Organizer: "City Hospital", ContactPhone: "555-1000",
			Description: "Annual blood drive to support local hospital needs"},
		{Name: "University Blood Donation Camp", Location: "University Campus, Student Center", CampDate: day(14),
			StartTime: "10:00", EndTime: "16:00", Organizer: "University Health Services", ContactPhone: "555-2000",
			Description: "Blood donation camp for students and faculty"},
		{Name: "Community Center Blood Drive", Location: "Downtown Community Center", CampDate: day(21),
			StartTime: "08:00", EndTime: "18:00", Organizer: "Red Cross", ContactPhone: "555-3000",
			Description: "Community blood drive open to all residents"},
	}
}

type seedResult struct {
	UsersCreated     int
	InventorySet     bool
	DonationsCreated int
	RequestsCreated  int
	CampsCreated     int
}

type seededUser struct {
	user    *account.User
	created bool
}

func ensureUsers(ctx context.Context, svc *account.Service, inputs []account.RegisterInput, role, password string) ([]seededUser, error) {
	out := make([]seededUser, 0, len(inputs))
	for _, in := range inputs {
		if in.Role == "" {
			in.Role = role
		}
		if in.Password == "" {
			in.Password = password
		}
		u, created, err := svc.EnsureUser(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", in.Username, err)
		}
		out = append(out, seededUser{user: u, created: created})
	}
	return out, nil
}

// seed loads the sample data set. History is only generated for users the
// call created, so a second run adds nothing.
func seed(ctx context.Context, svc *services, logger zerolog.Logger) (*seedResult, error) {
	res := &seedResult{}
	today := dates.Today()

	admins, err := ensureUsers(ctx, svc.Accounts, []account.RegisterInput{seedAdmin}, auth.RoleAdmin, seedAdminPassword)
	if err != nil {
		return nil, err
	}
	donors, err := ensureUsers(ctx, svc.Accounts, seedDonors, auth.RoleDonor, seedUserPassword)
	if err != nil {
		return nil, err
	}
	patients, err := ensureUsers(ctx, svc.Accounts, seedPatients, auth.RolePatient, seedUserPassword)
	if err != nil {
		return nil, err
	}
	for _, group := range [][]seededUser{admins, donors, patients} {
		for _, u := range group {
			if u.created {
				res.UsersCreated++
			}
		}
	}
	admin := admins[0].user

	total, err := svc.Inventory.Total(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		for i, g := range bloodgroup.All() {
			if _, err := svc.Inventory.Set(ctx, g, seedInventory[i]); err != nil {
				return nil, fmt.Errorf("seed inventory %s: %w", g, err)
			}
		}
		res.InventorySet = true
	}

	for i := 0; i < seedDonationCount; i++ {
		d := donors[i%len(donors)]
		if !d.created {
			continue
		}
		hb := 12.5 + float64(i%3)*0.5
		notes := fmt.Sprintf("Donation %d - Regular donation", i+1)
		err := svc.Donations.Record(ctx, &donation.Donation{
			DonorID:         d.user.ID,
			DonationDate:    dates.AddDays(today, -(i*7 + i%30)),
			UnitsDonated:    donation.UnitsPerDonation,
			BloodGroup:      d.user.BloodGroup,
			Status:          donation.StatusCompleted,
			HemoglobinLevel: &hb,
			Notes:           &notes,
		})
		if err != nil {
			return nil, fmt.Errorf("seed donation %d: %w", i+1, err)
		}
		res.DonationsCreated++
	}

	groups := bloodgroup.All()
	now := time.Now().UTC()
	for i := 0; i < seedRequestCount; i++ {
		p := patients[i%len(patients)]
		if !p.created {
			continue
		}
		requested := dates.AddDays(today, -i*3)
		requiredBy := dates.AddDays(requested, 7)
		reason := fmt.Sprintf("Medical procedure requiring blood transfusion #%d", i+1)
		q := &bloodrequest.Request{
			PatientID:     p.user.ID,
			BloodGroup:    groups[i%len(groups)],
			UnitsRequired: i%3 + 1,
			Urgency:       seedUrgencies[i%len(seedUrgencies)],
			Reason:        &reason,
			Status:        seedStatuses[i%len(seedStatuses)],
			RequestDate:   requested,
			RequiredBy:    &requiredBy,
		}
		if q.Status != bloodrequest.StatusPending {
			q.ApprovedBy = &admin.ID
			q.ApprovedAt = &now
		}
		if q.Status == bloodrequest.StatusRejected {
			notes := "Insufficient blood available at the time"
			q.Notes = &notes
		}
		if err := svc.Requests.Record(ctx, q); err != nil {
			return nil, fmt.Errorf("seed request %d: %w", i+1, err)
		}
		res.RequestsCreated++
	}

	for _, in := range seedCamps(today) {
		_, created, err := svc.Camps.Ensure(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("seed camp %s: %w", in.Name, err)
		}
		if created {
			res.CampsCreated++
		}
	}

	logger.Info().
		Int("users", res.UsersCreated).
		Bool("inventory", res.InventorySet).
		Int("donations", res.DonationsCreated).
		Int("requests", res.RequestsCreated).
		Int("camps", res.CampsCreated).
		Msg("seed complete")
	return res, nil
}

func printSeedResult(w io.Writer, res *seedResult) {
	fmt.Fprintf(w, "Users created:     %d\n", res.UsersCreated)
	fmt.Fprintf(w, "Inventory seeded:  %t\n", res.InventorySet)
	fmt.Fprintf(w, "Donations created: %d\n", res.DonationsCreated)
	fmt.Fprintf(w, "Requests created:  %d\n", res.RequestsCreated)
	fmt.Fprintf(w, "Camps created:     %d\n", res.CampsCreated)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Admin:   username=admin password=%s\n", seedAdminPassword)
	fmt.Fprintf(w, "Donor:   username=john_doe password=%s\n", seedUserPassword)
	fmt.Fprintf(w, "Patient: username=patient1 password=%s\n", seedUserPassword)
}
