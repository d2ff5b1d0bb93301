package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/models"
)

// CashService covers the manual cash-handling records: pickup people, sales
// reps, cash pickups, bank deposits and the deposit-to-pickup links. Create
// and update are explicit separate operations; there is no upsert path.
type CashService struct {
	db *sql.DB
}

func NewCashService() *CashService {
	return &CashService{db: database.DB}
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- people ---

func (s *CashService) ListPeople() ([]models.Person, error) {
	rows, err := s.db.Query(`SELECT id, name, phone, active FROM people ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Active); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *CashService) CreatePerson(p *models.Person) error {
	res, err := s.db.Exec(`INSERT INTO people (name, phone, active) VALUES (?, ?, ?)`,
		p.Name, p.Phone, p.Active)
	if err != nil {
		return fmt.Errorf("inserting person: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *CashService) UpdatePerson(p *models.Person) error {
	res, err := s.db.Exec(`UPDATE people SET name = ?, phone = ?, active = ? WHERE id = ?`,
		p.Name, p.Phone, p.Active, p.ID)
	if err != nil {
		return fmt.Errorf("updating person %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePerson refuses when the person has recorded pickups; deactivate
// instead.
func (s *CashService) DeletePerson(id int64) error {
	var linked int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cash_pickups WHERE person_id = ?`, id).Scan(&linked); err != nil {
		return fmt.Errorf("counting pickups for person %d: %w", id, err)
	}
	if linked > 0 {
		return fmt.Errorf("person %d has %d pickups: %w", id, linked, ErrHasLinkedRecords)
	}
	res, err := s.db.Exec(`DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting person %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sales reps ---

func (s *CashService) ListSalesReps() ([]models.SalesRep, error) {
	rows, err := s.db.Query(`SELECT id, name, commission_rate, active FROM sales_reps ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []models.SalesRep
	for rows.Next() {
		var r models.SalesRep
		if err := rows.Scan(&r.ID, &r.Name, &r.CommissionRate, &r.Active); err != nil {
			return nil, err
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

func (s *CashService) CreateSalesRep(r *models.SalesRep) error {
	res, err := s.db.Exec(`INSERT INTO sales_reps (name, commission_rate, active) VALUES (?, ?, ?)`,
		r.Name, r.CommissionRate, r.Active)
	if err != nil {
		return fmt.Errorf("inserting sales rep: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *CashService) UpdateSalesRep(r *models.SalesRep) error {
	res, err := s.db.Exec(`UPDATE sales_reps SET name = ?, commission_rate = ?, active = ? WHERE id = ?`,
		r.Name, r.CommissionRate, r.Active, r.ID)
	if err != nil {
		return fmt.Errorf("updating sales rep %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSalesRep refuses when the rep is assigned to devices or has stored
// commission snapshots.
func (s *CashService) DeleteSalesRep(id int64) error {
	var assigned, snapshots int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM atm_profiles WHERE sales_rep_id = ?`, id).Scan(&assigned); err != nil {
		return fmt.Errorf("counting device assignments for rep %d: %w", id, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM commissions WHERE sales_rep_id = ?`, id).Scan(&snapshots); err != nil {
		return fmt.Errorf("counting commission snapshots for rep %d: %w", id, err)
	}
	if assigned > 0 || snapshots > 0 {
		return fmt.Errorf("sales rep %d has %d assignments and %d snapshots: %w",
			id, assigned, snapshots, ErrHasLinkedRecords)
	}
	res, err := s.db.Exec(`DELETE FROM sales_reps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sales rep %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- cash pickups ---

func (s *CashService) ListPickups() ([]models.CashPickup, error) {
	rows, err := s.db.Query(`SELECT id, device_id, person_id, amount, pickup_date, notes
		FROM cash_pickups ORDER BY pickup_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pickups []models.CashPickup
	for rows.Next() {
		var p models.CashPickup
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.PersonID, &p.Amount, &p.PickupDate, &p.Notes); err != nil {
			return nil, err
		}
		pickups = append(pickups, p)
	}
	return pickups, rows.Err()
}

func (s *CashService) CreatePickup(p *models.CashPickup) error {
	res, err := s.db.Exec(`INSERT INTO cash_pickups (device_id, person_id, amount, pickup_date, notes)
		VALUES (?, ?, ?, ?, ?)`,
		p.DeviceID, p.PersonID, p.Amount, p.PickupDate, p.Notes)
	if err != nil {
		return fmt.Errorf("inserting pickup: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// DeletePickup refuses when the pickup is already covered by a deposit.
func (s *CashService) DeletePickup(id int64) error {
	var linked int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM deposit_pickup_links WHERE pickup_id = ?`, id).Scan(&linked); err != nil {
		return fmt.Errorf("counting deposit links for pickup %d: %w", id, err)
	}
	if linked > 0 {
		return fmt.Errorf("pickup %d is linked to %d deposits: %w", id, linked, ErrHasLinkedRecords)
	}
	res, err := s.db.Exec(`DELETE FROM cash_pickups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting pickup %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- deposits ---

func (s *CashService) ListDeposits() ([]models.Deposit, error) {
	rows, err := s.db.Query(`SELECT id, deposit_no, amount, deposit_date, bank, notes
		FROM deposits ORDER BY deposit_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.DepositNo, &d.Amount, &d.DepositDate, &d.Bank, &d.Notes); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// CreateDeposit inserts a deposit; a duplicate bank slip number surfaces as
// ErrDuplicateKey so the handler can name the conflicting field.
func (s *CashService) CreateDeposit(d *models.Deposit) error {
	res, err := s.db.Exec(`INSERT INTO deposits (deposit_no, amount, deposit_date, bank, notes)
		VALUES (?, ?, ?, ?, ?)`,
		d.DepositNo, d.Amount, d.DepositDate, d.Bank, d.Notes)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("deposit number %q: %w", d.DepositNo, ErrDuplicateKey)
		}
		return fmt.Errorf("inserting deposit: %w", err)
	}
	d.ID, _ = res.LastInsertId()
	return nil
}

// DeleteDeposit removes the deposit; its pickup links cascade away while the
// pickups themselves survive.
func (s *CashService) DeleteDeposit(id int64) error {
	res, err := s.db.Exec(`DELETE FROM deposits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting deposit %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkPickups attaches pickups to a deposit inside one transaction; either
// every link is written or none.
func (s *CashService) LinkPickups(depositID int64, pickupIDs []int64) ([]models.DepositPickupLink, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM deposits WHERE id = ?`, depositID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking deposit %d: %w", depositID, err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO deposit_pickup_links (deposit_id, pickup_id) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing link insert: %w", err)
	}
	defer stmt.Close()

	links := make([]models.DepositPickupLink, 0, len(pickupIDs))
	for _, pickupID := range pickupIDs {
		res, err := stmt.Exec(depositID, pickupID)
		if err != nil {
			return nil, fmt.Errorf("linking pickup %d to deposit %d: %w", pickupID, depositID, err)
		}
		id, _ := res.LastInsertId()
		links = append(links, models.DepositPickupLink{ID: id, DepositID: depositID, PickupID: pickupID})
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing pickup links: %w", err)
	}
	return links, nil
}
