package student_test

import (
	"errors"
	stdsync "sync"
	"testing"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	"github.com/bebohany644546654/physica/sync"
	testutil "github.com/bebohany644546654/physica/tests"
)

type fakeMailer struct {
	mu   stdsync.Mutex
	sent []core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.sent = append(m.sent, *msg)
	}
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePayments struct {
	refreshed []student.Student
	removed   []string
}

func (p *fakePayments) RefreshStudent(stu student.Student) error {
	p.refreshed = append(p.refreshed, stu)
	return nil
}

func (p *fakePayments) RemoveForStudent(studentID string) error {
	p.removed = append(p.removed, studentID)
	return nil
}

func newTestService(t *testing.T) (*student.Service, *fakeMailer, *fakePayments) {
	t.Helper()
	co, _, _ := testutil.SyncEnv(t, false /* offline */)
	mailer := &fakeMailer{}
	payments := &fakePayments{}
	svc := student.NewService(
		sync.Register[student.Student](co, student.Collection),
		sync.Register[student.Parent](co, student.ParentCollection),
		mailer,
		core.NopLogger{},
	)
	svc.BindPayments(payments)
	return svc, mailer, payments
}

func TestServiceCreate(t *testing.T) {
	svc, mailer, _ := newTestService(t)

	stu, pwd, err := svc.Create(student.NewStudent{
		Name:        "Sara Adel",
		Phone:       "+201001234567",
		ParentPhone: "+201007654321",
		Email:       "Sara@Test.test",
		Group:       "saturday",
		Grade:       core.GradeFirst,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(stu.Code) != student.CodeLength {
		t.Errorf("Code = %q; want %d digits", stu.Code, student.CodeLength)
	}
	for _, char := range stu.Code {
		if char < '0' || char > '9' {
			t.Errorf("Code = %q; want digits only", stu.Code)
			break
		}
	}
	if len(pwd) < 8 {
		t.Errorf("password %q shorter than 8", pwd)
	}
	if err = stu.CheckPassword(pwd); err != nil {
		t.Errorf("CheckPassword() on returned password failed: %v", err)
	}
	if stu.Email != "sara@test.test" {
		t.Errorf("Email = %q; want lowercased", stu.Email)
	}
	if mailer.count() != 1 {
		t.Errorf("sent %d welcome mails; want 1", mailer.count())
	}

	// no email, no mail
	if _, _, err = svc.Create(student.NewStudent{
		Name: "Omar Tarek", Phone: "+201001111111", ParentPhone: "+201002222222",
		Group: "sunday", Grade: core.GradeSecond,
	}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if mailer.count() != 1 {
		t.Errorf("sent %d welcome mails; want still 1", mailer.count())
	}

	tests := []struct {
		name string
		ns   student.NewStudent
	}{
		{name: "missing name", ns: student.NewStudent{Phone: "+201001234567", ParentPhone: "+201007654321", Grade: core.GradeFirst}},
		{name: "bad phone", ns: student.NewStudent{Name: "x", Phone: "nope", ParentPhone: "+201007654321", Grade: core.GradeFirst}},
		{name: "bad grade", ns: student.NewStudent{Name: "x", Phone: "+201001234567", ParentPhone: "+201007654321", Grade: "fourth"}},
		{name: "bad email", ns: student.NewStudent{Name: "x", Phone: "+201001234567", ParentPhone: "+201007654321", Email: "nope", Grade: core.GradeFirst}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Create(tt.ns); err == nil {
				t.Error("Create() accepted invalid input")
			}
		})
	}
}

func TestServiceUpdate(t *testing.T) {
	svc, _, payments := newTestService(t)
	stu := testutil.CreateStudent(t, svc, "Sara Adel", "+201001234567", "+201007654321", "saturday", core.GradeFirst)

	got, err := svc.Update(stu.ID, student.UpdateStudent{Name: "Sara A.", Group: "sunday"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Name != "Sara A." || got.Group != "sunday" {
		t.Errorf("Update() = %q/%q; want Sara A./sunday", got.Name, got.Group)
	}
	if got.Phone != stu.Phone || got.Grade != stu.Grade || got.Code != stu.Code {
		t.Error("Update() clobbered unset fields")
	}
	if len(payments.refreshed) != 1 || payments.refreshed[0].Name != "Sara A." {
		t.Errorf("payment refresh = %+v; want one refresh with the new name", payments.refreshed)
	}

	// admin-set password must satisfy the policy
	if _, err = svc.Update(stu.ID, student.UpdateStudent{Password: "12345678"}); err == nil {
		t.Error("Update() accepted an all-numeric password")
	}
	if _, err = svc.Update(stu.ID, student.UpdateStudent{Password: "s3cure pass"}); err == nil {
		t.Error("Update() accepted a password with whitespace")
	}
	got, err = svc.Update(stu.ID, student.UpdateStudent{Password: "g00d#Secret"})
	if err != nil {
		t.Fatalf("Update() with valid password failed: %v", err)
	}
	if err = got.CheckPassword("g00d#Secret"); err != nil {
		t.Errorf("CheckPassword() after update failed: %v", err)
	}

	if _, err = svc.Update("nope", student.UpdateStudent{Name: "x"}); err != student.ErrNotFound {
		t.Errorf("Update() error = %v; want ErrNotFound", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, _, payments := newTestService(t)
	stu := testutil.CreateStudent(t, svc, "Sara Adel", "+201001234567", "+201007654321", "saturday", core.GradeFirst)

	par, _, err := svc.CreateParent(student.NewParent{Phone: "+201007654321", StudentCode: stu.Code})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}

	if err = svc.Delete(stu.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err = svc.GetByID(stu.ID); err != student.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v; want ErrNotFound", err)
	}
	if len(payments.removed) != 1 || payments.removed[0] != stu.ID {
		t.Errorf("payment cascade = %v; want [%s]", payments.removed, stu.ID)
	}
	// the guardian account survives its student
	if _, err = svc.GetParentByPhone(par.Phone); err != nil {
		t.Errorf("GetParentByPhone() after student delete failed: %v", err)
	}

	if err = svc.Delete(stu.ID); err != student.ErrNotFound {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)

	stu, pwd, err := svc.Create(student.NewStudent{
		Name: "Sara Adel", Phone: "+201001234567", ParentPhone: "+201007654321",
		Group: "saturday", Grade: core.GradeFirst,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := svc.AuthenticateStudent(stu.Code, pwd)
	if err != nil {
		t.Fatalf("AuthenticateStudent() failed: %v", err)
	}
	if got.ID != stu.ID {
		t.Errorf("AuthenticateStudent() = %s; want %s", got.ID, stu.ID)
	}

	if _, err = svc.AuthenticateStudent(stu.Code, "wrong"); err != student.ErrInvalidPassword {
		t.Errorf("AuthenticateStudent() error = %v; want ErrInvalidPassword", err)
	}
	if _, err = svc.AuthenticateStudent("000000", pwd); err != student.ErrInvalidPassword {
		t.Errorf("AuthenticateStudent() error = %v; want ErrInvalidPassword", err)
	}
}

func TestParents(t *testing.T) {
	svc, _, _ := newTestService(t)
	stu := testutil.CreateStudent(t, svc, "Sara Adel", "+201001234567", "+201007654321", "saturday", core.GradeFirst)

	// a guardian account needs an existing student code
	_, _, err := svc.CreateParent(student.NewParent{Phone: "+201007654321", StudentCode: "000000"})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CreateParent() error = %v; want ValidationError on unknown code", err)
	}

	par, pwd, err := svc.CreateParent(student.NewParent{Phone: "+201007654321", StudentCode: stu.Code})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	if par.StudentName != stu.Name {
		t.Errorf("StudentName = %q; want %q", par.StudentName, stu.Name)
	}

	if _, err = svc.AuthenticateParent(par.Phone, pwd); err != nil {
		t.Fatalf("AuthenticateParent() failed: %v", err)
	}
	if _, err = svc.AuthenticateParent(par.Phone, "wrong"); err != student.ErrInvalidPassword {
		t.Errorf("AuthenticateParent() error = %v; want ErrInvalidPassword", err)
	}

	// one account per phone
	if _, _, err = svc.CreateParent(student.NewParent{Phone: "+201007654321", StudentCode: stu.Code}); err == nil {
		t.Error("CreateParent() accepted a duplicate phone")
	}

	if err = svc.DeleteParent(par.ID); err != nil {
		t.Fatalf("DeleteParent() failed: %v", err)
	}
	if err = svc.DeleteParent(par.ID); err != student.ErrParentNotFound {
		t.Errorf("DeleteParent() error = %v; want ErrParentNotFound", err)
	}
}
